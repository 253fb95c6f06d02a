package htmlizer

import (
	"sort"

	"github.com/livefir/htmlizer/internal/arraydiff"
)

// ObservableArray is a reactive ordered sequence. Every structural mutation
// goes through one splice primitive; dependents whose handler implements
// SpliceHandler receive the exact splice, all others a generic Update.
type ObservableArray struct {
	items []any
	deps  dependents
	subs  subscribers
}

// NewObservableArray returns an array holding a copy of items.
func NewObservableArray(items []any) *ObservableArray {
	return &ObservableArray{items: clone(items)}
}

// Get returns a copy of the items without registering a dependency.
func (a *ObservableArray) Get() []any {
	return clone(a.items)
}

// Len returns the number of items.
func (a *ObservableArray) Len() int {
	return len(a.items)
}

// Count is Len.
func (a *ObservableArray) Count() int {
	return len(a.items)
}

// At returns the item at i, or nil when i is out of range.
func (a *ObservableArray) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// IndexOf returns the position of the first item identical to item, or -1.
func (a *ObservableArray) IndexOf(item any) int {
	for i, v := range a.items {
		if arraydiff.Same(v, item) {
			return i
		}
	}
	return -1
}

// Set replaces the whole sequence. Dependents get the generic Update, which
// for foreach diffs the old list against the new one.
func (a *ObservableArray) Set(items []any) {
	a.items = clone(items)
	for _, d := range a.deps.live() {
		d.view.update(d.record, d.binding)
	}
	a.subs.notify(a.Get())
}

// Subscribe registers fn to be called with a copy of the items after every
// effective mutation.
func (a *ObservableArray) Subscribe(fn func(any)) (unsubscribe func()) {
	return a.subs.add(fn)
}

// Dependents returns the number of live dependent bindings.
func (a *ObservableArray) Dependents() int {
	return len(a.deps.live())
}

// Splice removes removeCount items at index and inserts items there,
// returning the removed items. A negative index counts from the end; both
// arguments are clamped to the sequence.
func (a *ObservableArray) Splice(index, removeCount int, items ...any) []any {
	n := len(a.items)
	if index < 0 {
		index += n
		if index < 0 {
			index = 0
		}
	}
	if index > n {
		index = n
	}
	if removeCount < 0 {
		removeCount = 0
	}
	if removeCount > n-index {
		removeCount = n - index
	}
	return a.splice(index, removeCount, items)
}

// Push appends items and returns the new length.
func (a *ObservableArray) Push(items ...any) int {
	a.splice(len(a.items), 0, items)
	return len(a.items)
}

// Pop removes and returns the last item.
func (a *ObservableArray) Pop() any {
	if len(a.items) == 0 {
		return nil
	}
	return a.splice(len(a.items)-1, 1, nil)[0]
}

// Shift removes and returns the first item.
func (a *ObservableArray) Shift() any {
	if len(a.items) == 0 {
		return nil
	}
	return a.splice(0, 1, nil)[0]
}

// Unshift prepends items and returns the new length.
func (a *ObservableArray) Unshift(items ...any) int {
	a.splice(0, 0, items)
	return len(a.items)
}

// Remove removes every item identical to item.
func (a *ObservableArray) Remove(item any) []any {
	return a.RemoveFunc(func(v any) bool { return arraydiff.Same(v, item) })
}

// RemoveFunc removes every item for which pred reports true, one splice per
// contiguous run, and returns the removed items in order.
func (a *ObservableArray) RemoveFunc(pred func(any) bool) []any {
	var runs [][2]int
	for i := 0; i < len(a.items); i++ {
		if !pred(a.items[i]) {
			continue
		}
		start := i
		for i+1 < len(a.items) && pred(a.items[i+1]) {
			i++
		}
		runs = append(runs, [2]int{start, i - start + 1})
	}

	var removed []any
	for r := len(runs) - 1; r >= 0; r-- {
		removed = append(a.splice(runs[r][0], runs[r][1], nil), removed...)
	}
	return removed
}

// RemoveAll removes the given items, or every item when called without
// arguments.
func (a *ObservableArray) RemoveAll(items ...any) []any {
	if len(items) == 0 {
		return a.splice(0, len(a.items), nil)
	}
	return a.RemoveFunc(func(v any) bool {
		for _, it := range items {
			if arraydiff.Same(v, it) {
				return true
			}
		}
		return false
	})
}

// Reverse reverses the items in place.
func (a *ObservableArray) Reverse() {
	n := len(a.items)
	order := make([]int, n)
	for i := range order {
		order[i] = n - 1 - i
	}
	a.reorder(order)
}

// Sort orders the items with less. The sort is stable.
func (a *ObservableArray) Sort(less func(x, y any) bool) {
	order := make([]int, len(a.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(a.items[order[i]], a.items[order[j]])
	})
	a.reorder(order)
}

func (a *ObservableArray) read(tr *tracker) []any {
	a.deps.add(tr)
	return a.Get()
}

func (a *ObservableArray) splice(index, removeCount int, items []any) []any {
	removed := clone(a.items[index : index+removeCount])
	if removeCount == 0 && len(items) == 0 {
		return removed
	}

	next := make([]any, 0, len(a.items)-removeCount+len(items))
	next = append(next, a.items[:index]...)
	next = append(next, items...)
	next = append(next, a.items[index+removeCount:]...)
	a.items = next

	inserted := clone(items)
	for _, d := range a.deps.live() {
		d.view.splice(d.record, d.binding, a, index, removeCount, inserted)
	}
	a.subs.notify(a.Get())
	return removed
}

// reorder moves items so that position i holds the item previously at
// order[i].
func (a *ObservableArray) reorder(order []int) {
	changed := false
	for i, from := range order {
		if i != from {
			changed = true
			break
		}
	}
	if !changed {
		return
	}

	next := make([]any, len(order))
	for i, from := range order {
		next[i] = a.items[from]
	}
	a.items = next

	for _, d := range a.deps.live() {
		d.view.reorder(d.record, d.binding, a, order)
	}
	a.subs.notify(a.Get())
}

func clone(items []any) []any {
	out := make([]any, len(items))
	copy(out, items)
	return out
}
