package htmlizer

import (
	"sort"

	"github.com/livefir/htmlizer/internal/arraydiff"
)

// Observable is a single reactive value. Reading it while a binding
// expression is being evaluated registers that binding as a dependent;
// writing a different value re-runs every dependent binding's Update.
//
// Observables are not safe for concurrent use. Page serializes access for
// the live server.
type Observable struct {
	value any
	deps  dependents
	subs  subscribers
}

// NewObservable returns an Observable holding v.
func NewObservable(v any) *Observable {
	return &Observable{value: v}
}

// Get returns the current value without registering a dependency.
func (o *Observable) Get() any {
	if o == nil {
		return nil
	}
	return o.value
}

// Set stores v and notifies dependents. Writing the value already held
// (identity comparison) does nothing.
func (o *Observable) Set(v any) {
	if arraydiff.Same(v, o.value) {
		return
	}
	o.value = v
	for _, d := range o.deps.live() {
		d.view.update(d.record, d.binding)
	}
	o.subs.notify(v)
}

// Subscribe registers fn to be called after every effective write.
func (o *Observable) Subscribe(fn func(any)) (unsubscribe func()) {
	return o.subs.add(fn)
}

// Dependents returns the number of live dependent bindings.
func (o *Observable) Dependents() int {
	return len(o.deps.live())
}

func (o *Observable) read(tr *tracker) any {
	if o == nil {
		return nil
	}
	o.deps.add(tr)
	return o.value
}

// Unwrap returns the value inside an Observable or ObservableArray, or v
// itself. Nested observables are unwrapped too. It never registers a
// dependency.
func Unwrap(v any) any {
	for {
		switch o := v.(type) {
		case *Observable:
			if o == nil {
				return nil
			}
			v = o.value
		case *ObservableArray:
			if o == nil {
				return nil
			}
			return o.Get()
		default:
			return v
		}
	}
}

// tracker identifies the binding whose expression is being evaluated. It
// is threaded through evaluation as the $unwrap hook's closure, never held
// in package state.
type tracker struct {
	view    *View
	record  int
	binding string
	expr    string

	// last array unwrapped during this evaluation
	array *ObservableArray
}

// unwrap reads through nested observables, so an Observable holding an
// ObservableArray yields the items and both are tracked.
func (tr *tracker) unwrap(v any) any {
	for {
		switch o := v.(type) {
		case *Observable:
			if o == nil {
				return nil
			}
			v = o.read(tr)
		case *ObservableArray:
			if o == nil {
				return nil
			}
			if tr != nil {
				tr.array = o
			}
			return o.read(tr)
		default:
			return v
		}
	}
}

type dependent struct {
	view    *View
	gen     int
	record  int
	binding string
	expr    string
}

type depKey struct {
	view    *View
	gen     int
	record  int
	binding string
}

func (d dependent) key() depKey {
	return depKey{view: d.view, gen: d.gen, record: d.record, binding: d.binding}
}

func (d dependent) stale() bool {
	return d.view.retired || d.view.gen != d.gen
}

// dependents is the dependency list of one observable, deduplicated per
// (view render, record, binding).
type dependents struct {
	list []dependent
	seen map[depKey]struct{}
}

func (ds *dependents) add(tr *tracker) {
	if tr == nil || tr.view == nil {
		return
	}
	d := dependent{view: tr.view, gen: tr.view.gen, record: tr.record, binding: tr.binding, expr: tr.expr}
	k := d.key()
	if _, ok := ds.seen[k]; ok {
		return
	}
	if ds.seen == nil {
		ds.seen = make(map[depKey]struct{})
	}
	ds.seen[k] = struct{}{}
	ds.list = append(ds.list, d)
}

// live prunes stale dependents and returns a snapshot of the rest. Callers
// iterate the snapshot, so writes made by a notified handler cannot disturb
// the loop.
func (ds *dependents) live() []dependent {
	kept := make([]dependent, 0, len(ds.list))
	for _, d := range ds.list {
		if d.stale() {
			delete(ds.seen, d.key())
			continue
		}
		kept = append(kept, d)
	}
	ds.list = kept
	return append([]dependent(nil), kept...)
}

type subscribers struct {
	next int
	fns  map[int]func(any)
}

func (s *subscribers) add(fn func(any)) func() {
	if s.fns == nil {
		s.fns = make(map[int]func(any))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() { delete(s.fns, id) }
}

func (s *subscribers) notify(v any) {
	if len(s.fns) == 0 {
		return
	}
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := s.fns[id]; ok {
			fn(v)
		}
	}
}
