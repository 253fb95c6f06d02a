package htmlizer

import (
	"reflect"
	"regexp"

	"golang.org/x/net/html"

	"github.com/livefir/htmlizer/internal/arraydiff"
	"github.com/livefir/htmlizer/internal/bindparse"
	"github.com/livefir/htmlizer/internal/dom"
)

// a plain reference such as items or $root.list evaluates to the array
// itself, so splices on that array can be applied as they are
var plainPath = regexp.MustCompile(`^\s*[\w$]+(\.[\w$]+)*\s*$`)

// foreachHandler renders one child View per item. Array splices and sorts
// on the source array are applied directly; any other change is diffed.
type foreachHandler struct{}

type foreachState struct {
	data   string
	alias  string
	items  []any
	source *ObservableArray
}

func (h foreachHandler) Init(b *Binding) Control {
	st := &foreachState{}
	st.data, st.alias = h.options(b)
	b.SetState(st)
	h.spliceItems(b, st, 0, 0, h.read(b, st))
	return b.descendants()
}

// Update re-reads the array and applies the diff against what is rendered.
func (h foreachHandler) Update(b *Binding) {
	st, ok := b.State().(*foreachState)
	if !ok {
		return
	}
	items := h.read(b, st)
	for _, c := range arraydiff.Diff(items, st.items) {
		switch c.Op {
		case arraydiff.Insert:
			h.spliceItems(b, st, c.Index, 0, c.Batch)
		case arraydiff.Remove:
			h.spliceItems(b, st, c.Index, len(c.Batch), nil)
		case arraydiff.Replace:
			h.spliceItems(b, st, c.Index, len(c.Batch), c.Batch)
		}
	}
	st.items = clone(items)
}

func (h foreachHandler) Splice(b *Binding, src *ObservableArray, index, removeCount int, items []any) {
	st, ok := b.State().(*foreachState)
	if !ok {
		return
	}
	if st.source != src || index+removeCount > len(st.items) {
		h.Update(b)
		return
	}
	h.spliceItems(b, st, index, removeCount, items)
}

func (h foreachHandler) Reorder(b *Binding, src *ObservableArray, order []int) {
	st, ok := b.State().(*foreachState)
	if !ok {
		return
	}
	if st.source != src || len(order) != len(st.items) {
		h.Update(b)
		return
	}
	h.sortItems(b, st, order)
}

// options reads foreach: expr, as: 'name' or foreach: {data: expr, as: 'name'}.
func (foreachHandler) options(b *Binding) (data, alias string) {
	if entries, ok := b.Object(); ok {
		for _, e := range entries {
			switch e.Key {
			case "data":
				data = e.Value
			case "as":
				alias = bindparse.Unquote(e.Value)
			}
		}
		if data == "" {
			b.Warnf("object form needs a data entry: %q", b.Expr)
		}
		return data, alias
	}
	if as, ok := b.Option("as"); ok {
		alias = bindparse.Unquote(as)
	}
	return b.Expr, alias
}

func (foreachHandler) read(b *Binding, st *foreachState) []any {
	if st.data == "" {
		return nil
	}
	v, src := b.eval(st.data)
	st.source = nil
	if src != nil && plainPath.MatchString(st.data) {
		st.source = src
	}
	items, ok := toItems(v)
	if !ok {
		b.Warnf("expected a list, got %T", v)
	}
	return items
}

// spliceItems retires removeCount item Views at index and inserts one new
// View per item in their place, then renumbers the Views after them.
func (h foreachHandler) spliceItems(b *Binding, st *foreachState, index, removeCount int, items []any) {
	views := b.Views()
	for _, v := range views[index : index+removeCount] {
		v.Retire()
	}

	created := make([]*View, len(items))
	frag := dom.NewFragment()
	for i, item := range items {
		created[i] = h.itemView(b, st, item, index+i)
		dom.InsertChildren(created[i].ToDocumentFragment(), frag, nil)
	}

	rest := views[index+removeCount:]
	b.insert(frag, firstNode(rest))

	next := make([]*View, 0, len(views)-removeCount+len(items))
	next = append(next, views[:index]...)
	next = append(next, created...)
	next = append(next, rest...)
	b.setViews(next)

	if len(items) != removeCount {
		for i := index + len(items); i < len(next); i++ {
			next[i].ctx.Index.Set(i)
		}
	}

	spliced := make([]any, 0, len(next))
	spliced = append(spliced, st.items[:index]...)
	spliced = append(spliced, items...)
	spliced = append(spliced, st.items[index+removeCount:]...)
	st.items = spliced
}

// sortItems moves the item Views into the given order.
func (foreachHandler) sortItems(b *Binding, st *foreachState, order []int) {
	views := b.Views()
	next := make([]*View, len(order))
	items := make([]any, len(order))
	for i, from := range order {
		next[i] = views[from]
		items[i] = st.items[from]
	}
	for _, v := range next {
		b.moveToEnd(v)
	}
	b.setViews(next)
	st.items = items

	for i, v := range next {
		v.ctx.Index.Set(i)
	}
}

func (foreachHandler) itemView(b *Binding, st *foreachState, item any, pos int) *View {
	ctx := b.Context().Descend(item, func(c *Context) {
		c.Index = NewObservable(pos)
		if st.alias != "" {
			c.Alias(st.alias, item)
		}
	})
	return NewView(b.Template().Child, nil, ctx, b.View)
}

func firstNode(views []*View) *html.Node {
	for _, v := range views {
		if v.first != nil {
			return v.first
		}
	}
	return nil
}

// toItems converts a list value of any slice or array type.
func toItems(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case []any:
		return x, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
