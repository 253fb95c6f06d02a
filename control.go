package htmlizer

import (
	"github.com/livefir/htmlizer/internal/arraydiff"
)

// conditionalHandler implements if and ifnot. The child View is created on
// first need and then only moved in and out, never rebuilt.
type conditionalHandler struct {
	negate bool
}

type conditionalState struct {
	view  *View
	shown bool
}

func (h conditionalHandler) Init(b *Binding) Control {
	st := &conditionalState{}
	b.SetState(st)
	if truthy(b.Value()) != h.negate {
		h.show(b, st)
	}
	return b.descendants()
}

func (h conditionalHandler) Update(b *Binding) {
	st, ok := b.State().(*conditionalState)
	if !ok {
		return
	}
	want := truthy(b.Value()) != h.negate
	if want == st.shown {
		return
	}
	if want {
		h.show(b, st)
		return
	}
	st.view.Detach()
	st.shown = false
}

func (conditionalHandler) show(b *Binding, st *conditionalState) {
	if st.view == nil {
		st.view = NewView(b.Template().Child, nil, b.Context(), b.View)
		b.setViews([]*View{st.view})
	}
	b.insert(st.view.ToDocumentFragment(), nil)
	st.shown = true
}

// withHandler renders its content against a descended context. A new
// value (by identity) replaces the child View.
type withHandler struct{}

type withState struct {
	value any
	view  *View
}

func (h withHandler) Init(b *Binding) Control {
	st := &withState{}
	b.SetState(st)
	h.render(b, st, b.Value())
	return b.descendants()
}

func (h withHandler) Update(b *Binding) {
	st, ok := b.State().(*withState)
	if !ok {
		return
	}
	v := b.Value()
	if arraydiff.Same(v, st.value) {
		return
	}
	if st.view != nil {
		st.view.Retire()
		st.view = nil
		b.setViews(nil)
	}
	h.render(b, st, v)
}

func (withHandler) render(b *Binding, st *withState, v any) {
	st.value = v
	if !truthy(v) {
		return
	}
	st.view = NewView(b.Template().Child, nil, b.Context().Descend(v, nil), b.View)
	b.setViews([]*View{st.view})
	b.insert(st.view.ToDocumentFragment(), nil)
}
