package htmlizer

import (
	"golang.org/x/net/html"

	"github.com/livefir/htmlizer/internal/dom"
	"github.com/livefir/htmlizer/internal/traverse"
)

// nodeRecord is the per-render state of one bound live node. Records live
// in the View's arena and are addressed by index.
type nodeRecord struct {
	node     *html.Node
	tmpl     *TemplateNode
	views    []*View
	blockEnd *html.Node
	state    map[string]any
}

// NodeInfo describes a bound live node.
type NodeInfo struct {
	ID       int
	Template *TemplateNode
	Binding  string
	Views    []*View
	BlockEnd *html.Node
}

// View is a render instance of a Template against one context. A View owns
// a contiguous sibling range [FirstChild, LastChild]; the range is moved,
// never rebuilt, when the View is detached and attached again.
type View struct {
	tmpl   *Template
	ctx    *Context
	parent *View
	cfg    *Config

	holder      *html.Node
	first, last *html.Node
	rendered    bool
	retired     bool
	gen         int

	records []*nodeRecord
	index   map[*html.Node]int
}

// NewView prepares a View of t. When ctx is nil a root context is built
// from data; otherwise ctx is used as is and data is ignored. Nothing is
// rendered until ToDocumentFragment or String is called.
func NewView(t *Template, data any, ctx *Context, parent *View) *View {
	if ctx == nil {
		ctx = NewContext(data)
	}
	return &View{
		tmpl:   t,
		ctx:    ctx,
		parent: parent,
		cfg:    t.cfg,
	}
}

// Template returns the compiled template the View renders.
func (v *View) Template() *Template { return v.tmpl }

// Context returns the View's scope.
func (v *View) Context() *Context { return v.ctx }

// Parent returns the View that created this one, or nil.
func (v *View) Parent() *View { return v.parent }

// FirstChild returns the first node of the View's range.
func (v *View) FirstChild() *html.Node { return v.first }

// LastChild returns the last node of the View's range.
func (v *View) LastChild() *html.Node { return v.last }

// Retired reports whether Retire has been called.
func (v *View) Retired() bool { return v.retired }

// ToDocumentFragment returns a fragment holding the View's nodes. The first
// call renders. Later calls never re-render: if the nodes were moved into a
// document they are moved back into a new fragment, which the caller owns.
func (v *View) ToDocumentFragment() *html.Node {
	if v.retired {
		return dom.NewFragment()
	}
	if !v.rendered {
		v.render()
		return v.holder
	}
	if v.first != nil && v.first.Parent != v.holder {
		v.holder = dom.NewFragment()
		dom.MoveRange(v.first, v.last, v.holder, nil)
	}
	return v.holder
}

// String serializes the View's range, rendering it first if needed.
func (v *View) String() string {
	if v.retired {
		return ""
	}
	if !v.rendered {
		v.render()
	}
	if v.first == nil {
		return ""
	}
	return dom.String(v.first, v.last)
}

// Detach moves the View's nodes out of wherever they are into its private
// fragment. The View stays live and can be attached again.
func (v *View) Detach() {
	if !v.rendered || v.first == nil || v.first.Parent == v.holder {
		return
	}
	v.holder = dom.NewFragment()
	dom.MoveRange(v.first, v.last, v.holder, nil)
}

// Retire permanently discards the View: its nodes are detached, the arena
// is dropped and no observable will update it again. Child Views are
// retired too.
func (v *View) Retire() {
	if v.retired {
		return
	}
	v.Detach()
	for _, rec := range v.records {
		for _, child := range rec.views {
			child.Retire()
		}
	}
	v.records = nil
	v.index = nil
	v.retired = true
}

// NodeInfo returns the binding information of a live node rendered by this
// View. Block end markers report the record of their start marker.
func (v *View) NodeInfo(n *html.Node) (NodeInfo, bool) {
	id, ok := v.index[n]
	if !ok {
		return NodeInfo{}, false
	}
	rec := v.records[id]
	return NodeInfo{
		ID:       id,
		Template: rec.tmpl,
		Binding:  rec.tmpl.Binding,
		Views:    append([]*View(nil), rec.views...),
		BlockEnd: rec.blockEnd,
	}, true
}

// render performs the full structural render, rebuilding the arena.
func (v *View) render() {
	v.gen++
	v.records = nil
	v.index = make(map[*html.Node]int)

	out := dom.NewFragment()
	stack := []*html.Node{out}
	endOf := make(map[*html.Node]int)
	after := make(map[*html.Node][]func())
	attr := v.cfg.Attribute()
	var ignoreTill *html.Node

	traverse.Walk(v.tmpl.frag.FirstChild, nil, func(n *html.Node, ev traverse.Event) traverse.Signal {
		if ev == traverse.Close {
			if ignoreTill == nil && n.Type == html.ElementNode {
				for _, fn := range after[n] {
					fn()
				}
				stack = stack[:len(stack)-1]
			}
			return traverse.Continue
		}
		if ignoreTill != nil {
			if n != ignoreTill {
				return traverse.SkipChildren
			}
			ignoreTill = nil
		}

		clone := dom.CloneShallow(n)
		stack[len(stack)-1].AppendChild(clone)

		if id, ok := endOf[n]; ok {
			v.records[id].blockEnd = clone
			v.index[clone] = id
		}

		sig := traverse.Continue
		if tn := v.tmpl.lookup(n); tn != nil {
			if clone.Type == html.ElementNode {
				dom.RemoveAttr(clone, attr)
			}
			id := v.addRecord(clone, tn)
			if tn.Block != nil {
				endOf[tn.Block.End] = id
			}
			ctl := v.initRecord(id)
			if ctl.SkipChildren {
				sig = traverse.SkipChildren
			}
			if ctl.IgnoreTill != nil && clone.Type != html.ElementNode {
				ignoreTill = ctl.IgnoreTill
			}
			if len(ctl.after) > 0 && clone.Type == html.ElementNode {
				after[n] = ctl.after
			}
		}

		if n.Type == html.ElementNode {
			stack = append(stack, clone)
		}
		return sig
	})

	v.holder = out
	v.first = out.FirstChild
	v.last = out.LastChild
	v.rendered = true
}

func (v *View) addRecord(n *html.Node, tn *TemplateNode) int {
	id := len(v.records)
	v.records = append(v.records, &nodeRecord{node: n, tmpl: tn})
	v.index[n] = id
	return id
}

// recordControl merges the controls of all bindings on one node.
type recordControl struct {
	SkipChildren bool
	IgnoreTill   *html.Node
	after        []func()
}

// initRecord runs Init for each binding of a record in declared order.
func (v *View) initRecord(id int) recordControl {
	var ctl recordControl
	for _, p := range v.records[id].tmpl.Pairs {
		h, ok := v.cfg.Registry.Lookup(p.Key)
		if !ok {
			continue
		}
		c := h.Init(v.binding(id, p.Key, p.Value))
		if c.SkipChildren {
			ctl.SkipChildren = true
		}
		if c.IgnoreTill != nil {
			ctl.IgnoreTill = c.IgnoreTill
		}
		if c.AfterChildren != nil {
			ctl.after = append(ctl.after, c.AfterChildren)
		}
	}
	return ctl
}

func (v *View) binding(id int, key, expr string) *Binding {
	rec := v.records[id]
	return &Binding{
		View:   v,
		Node:   rec.node,
		Key:    key,
		Expr:   expr,
		record: id,
	}
}

func (v *View) lookupBinding(id int, key string) (*Binding, Handler, bool) {
	if v.retired || id >= len(v.records) {
		return nil, nil, false
	}
	expr, ok := v.records[id].tmpl.Option(key)
	if !ok {
		return nil, nil, false
	}
	h, ok := v.cfg.Registry.Lookup(key)
	if !ok {
		return nil, nil, false
	}
	return v.binding(id, key, expr), h, true
}

// update re-runs one binding after an observable it read changed.
func (v *View) update(id int, key string) {
	if b, h, ok := v.lookupBinding(id, key); ok {
		h.Update(b)
	}
}

func (v *View) splice(id int, key string, src *ObservableArray, index, removeCount int, items []any) {
	b, h, ok := v.lookupBinding(id, key)
	if !ok {
		return
	}
	if sh, ok := h.(SpliceHandler); ok {
		sh.Splice(b, src, index, removeCount, items)
		return
	}
	h.Update(b)
}

func (v *View) reorder(id int, key string, src *ObservableArray, order []int) {
	b, h, ok := v.lookupBinding(id, key)
	if !ok {
		return
	}
	if sh, ok := h.(SortHandler); ok {
		sh.Reorder(b, src, order)
		return
	}
	h.Update(b)
}
