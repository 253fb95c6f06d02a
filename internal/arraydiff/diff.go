// Package arraydiff computes batched insert/remove/replace edits that turn
// one list of opaque values into another.
//
// Three linear scans are tried and the one producing the fewest batches wins.
// The result is not guaranteed to be a minimal edit script (this is not an LCS
// diff); it is cheap enough to run on every list change notification.
package arraydiff

import "reflect"

// Op is the kind of a Change.
type Op int

const (
	Insert Op = iota
	Remove
	Replace
)

func (o Op) String() string {
	switch o {
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Change is one contiguous batch. Index is relative to the list as left by the
// changes before it.
type Change struct {
	Op    Op
	Index int
	Batch []any
}

// Diff returns the changes that turn oldItems into newItems.
func Diff(newItems, oldItems []any) []Change {
	inserted := insertBiased(newItems, oldItems)
	if len(inserted) <= 1 || len(newItems) == 0 || len(oldItems) == 0 {
		return inserted
	}

	removed := removeBiased(newItems, oldItems)
	if len(removed) <= 1 {
		return removed
	}

	best := inserted
	if len(removed) < len(best) {
		best = removed
	}
	if replaced := replaceBiased(newItems, oldItems); len(replaced) < len(best) {
		best = replaced
	}
	return best
}

// Apply applies changes to a copy of items.
func Apply(items []any, changes []Change) []any {
	out := make([]any, len(items))
	copy(out, items)
	for _, c := range changes {
		switch c.Op {
		case Insert:
			out = splice(out, c.Index, 0, c.Batch)
		case Remove:
			out = splice(out, c.Index, len(c.Batch), nil)
		case Replace:
			out = splice(out, c.Index, len(c.Batch), c.Batch)
		}
	}
	return out
}

// Size returns the number of values carried by changes.
func Size(changes []Change) int {
	n := 0
	for _, c := range changes {
		n += len(c.Batch)
	}
	return n
}

// Same reports identity equality: == for comparable values, pointer identity
// for slices, maps, funcs and channels. It never compares deeply and never
// panics.
func Same(a, b any) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	if ta.Comparable() {
		defer func() {
			// interface fields holding uncomparable values
			if recover() != nil {
				same = false
			}
		}()
		return a == b
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Len() == vb.Len() && (va.Len() == 0 || va.Pointer() == vb.Pointer())
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// replaceBiased turns positional mismatches into replacements and the length
// difference into a trailing insert or remove.
func replaceBiased(newItems, oldItems []any) []Change {
	var b builder
	n := min(len(newItems), len(oldItems))
	for i := 0; i < n; i++ {
		if !Same(newItems[i], oldItems[i]) {
			b.add(Replace, i, newItems[i])
		}
	}
	if len(newItems) > n {
		b.addRun(Insert, n, newItems[n:])
	}
	if len(oldItems) > n {
		b.addRun(Remove, n, oldItems[n:])
	}
	return b.changes
}

// insertBiased assumes every mismatch is a value inserted into newItems.
func insertBiased(newItems, oldItems []any) []Change {
	var b builder
	i, j := 0, 0
	for i < len(newItems) && j < len(oldItems) {
		if Same(newItems[i], oldItems[j]) {
			i++
			j++
			continue
		}
		b.add(Insert, i, newItems[i])
		i++
	}
	return b.tail(newItems, oldItems, i, j)
}

// removeBiased assumes every mismatch is a value removed from oldItems.
func removeBiased(newItems, oldItems []any) []Change {
	var b builder
	i, j := 0, 0
	for i < len(newItems) && j < len(oldItems) {
		if Same(newItems[i], oldItems[j]) {
			i++
			j++
			continue
		}
		b.add(Remove, i, oldItems[j])
		j++
	}
	return b.tail(newItems, oldItems, i, j)
}

type builder struct {
	changes []Change
}

// tail handles leftovers once either cursor is exhausted. The working list
// is newItems[:i] followed by oldItems[j:].
func (b *builder) tail(newItems, oldItems []any, i, j int) []Change {
	if j < len(oldItems) {
		b.addRun(Remove, i, oldItems[j:])
	}
	if i < len(newItems) {
		b.addRun(Insert, i, newItems[i:])
	}
	return b.changes
}

func (b *builder) add(op Op, index int, v any) {
	if k := len(b.changes) - 1; k >= 0 {
		last := &b.changes[k]
		if last.Op == op && b.extends(last, index) {
			last.Batch = append(last.Batch, v)
			return
		}
	}
	b.changes = append(b.changes, Change{Op: op, Index: index, Batch: []any{v}})
}

func (b *builder) addRun(op Op, index int, vs []any) {
	for k, v := range vs {
		if op == Remove {
			b.add(op, index, v)
		} else {
			b.add(op, index+k, v)
		}
	}
}

// extends reports whether a change at index continues last.
func (b *builder) extends(last *Change, index int) bool {
	if last.Op == Remove {
		// removals keep hitting the same slot
		return index == last.Index
	}
	return index == last.Index+len(last.Batch)
}

func splice(items []any, index, removeCount int, insert []any) []any {
	out := make([]any, 0, len(items)-removeCount+len(insert))
	out = append(out, items[:index]...)
	out = append(out, insert...)
	return append(out, items[index+removeCount:]...)
}
