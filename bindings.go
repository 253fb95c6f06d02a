package htmlizer

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/htmlizer/internal/bindparse"
	"github.com/livefir/htmlizer/internal/dom"
)

// Binding is one key of a bound live node, handed to handlers.
type Binding struct {
	View *View
	Node *html.Node
	Key  string
	Expr string

	record int
}

// Context returns the scope the binding evaluates against.
func (b *Binding) Context() *Context {
	return b.View.ctx
}

// Template returns the compiled node the binding came from.
func (b *Binding) Template() *TemplateNode {
	return b.rec().tmpl
}

// IsBlock reports whether the binding sits on a comment block start marker.
func (b *Binding) IsBlock() bool {
	return b.rec().tmpl.Block != nil
}

// BlockEnd returns the live end marker of a comment block. It is nil while
// the block itself is being initialized.
func (b *Binding) BlockEnd() *html.Node {
	return b.rec().blockEnd
}

// Value evaluates the binding expression, tracking observable reads.
func (b *Binding) Value() any {
	v, _ := b.eval(b.Expr)
	return v
}

// Eval evaluates another expression on behalf of this binding. Observables
// read by it re-run this binding's Update.
func (b *Binding) Eval(src string) any {
	v, _ := b.eval(src)
	return v
}

// Object returns the entries of an object-literal binding value.
func (b *Binding) Object() ([]bindparse.Pair, bool) {
	return b.rec().tmpl.Object(b.Key)
}

// Option returns the raw expression of another key on the same node.
func (b *Binding) Option(key string) (string, bool) {
	return b.rec().tmpl.Option(key)
}

// State returns the value stored with SetState by an earlier call.
func (b *Binding) State() any {
	return b.rec().state[b.Key]
}

// SetState stores per-binding handler state for the current render.
func (b *Binding) SetState(v any) {
	rec := b.rec()
	if rec.state == nil {
		rec.state = make(map[string]any)
	}
	rec.state[b.Key] = v
}

// Views returns the child Views attached to the bound node.
func (b *Binding) Views() []*View {
	return b.rec().views
}

// Warnf logs a warning attributed to this binding.
func (b *Binding) Warnf(format string, args ...any) {
	b.View.cfg.warnf("%s: "+format, append([]any{b.Key}, args...)...)
}

func (b *Binding) rec() *nodeRecord {
	return b.View.records[b.record]
}

func (b *Binding) setViews(views []*View) {
	b.rec().views = views
}

// eval runs src with a tracker for this binding. Failures are logged and
// yield nil. The second result is the last ObservableArray read.
func (b *Binding) eval(src string) (any, *ObservableArray) {
	tr := &tracker{view: b.View, record: b.record, binding: b.Key, expr: src}
	out, err := b.View.cfg.evaluator.Eval(src, b.View.ctx.Env(), tr.unwrap)
	if err != nil {
		b.Warnf("%v", err)
		return nil, nil
	}
	return out, tr.array
}

// descendants is the Init control for handlers that render the node's
// content themselves.
func (b *Binding) descendants() Control {
	if b.IsBlock() {
		return Control{IgnoreTill: b.Template().Block.End}
	}
	return Control{SkipChildren: true}
}

// insert places frag's nodes into the bound content area before the given
// node, or at its end when before is nil.
func (b *Binding) insert(frag, before *html.Node) {
	if !b.IsBlock() {
		dom.InsertChildren(frag, b.Node, before)
		return
	}
	if before == nil {
		before = b.BlockEnd()
	}
	dom.InsertChildren(frag, b.Node.Parent, before)
}

// moveToEnd moves a child View's range to the end of the content area.
func (b *Binding) moveToEnd(v *View) {
	if v.first == nil {
		return
	}
	if b.IsBlock() {
		dom.MoveRange(v.first, v.last, b.Node.Parent, b.BlockEnd())
		return
	}
	dom.MoveRange(v.first, v.last, b.Node, nil)
}

func registerBuiltins(r *Registry) {
	r.Register("text", textHandler{})
	r.Register("html", htmlHandler{})
	r.Register("attr", attrHandler{})
	r.Register("css", cssHandler{})
	r.Register("style", styleHandler{})
	r.Register("value", valueHandler{})
	r.Register("checked", checkedHandler{})
	r.Register("enable", boolAttrHandler{attr: "disabled", negate: true})
	r.Register("disable", boolAttrHandler{attr: "disabled"})
	r.Register("visible", visibleHandler{})
	r.Register("if", conditionalHandler{})
	r.Register("ifnot", conditionalHandler{negate: true})
	r.Register("with", withHandler{})
	r.Register("foreach", foreachHandler{})
}

type textHandler struct{}

func (textHandler) Init(b *Binding) Control {
	s := toText(b.Value())
	if b.IsBlock() {
		t := &html.Node{Type: html.TextNode, Data: s}
		b.Node.Parent.InsertBefore(t, b.Node.NextSibling)
		b.SetState(t)
		return b.descendants()
	}
	dom.SetText(b.Node, s)
	return b.descendants()
}

func (textHandler) Update(b *Binding) {
	s := toText(b.Value())
	if t, ok := b.State().(*html.Node); ok {
		if t.Data != s {
			t.Data = s
		}
		return
	}
	dom.SetText(b.Node, s)
}

type htmlHandler struct{}

func (h htmlHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{SkipChildren: true}
}

func (htmlHandler) Update(b *Binding) {
	frag, err := dom.ParseInto(toText(b.Value()), b.Node)
	if err != nil {
		b.Warnf("%v", err)
		return
	}
	dom.RemoveChildren(b.Node)
	dom.InsertChildren(frag, b.Node, nil)
}

type attrHandler struct{}

func (h attrHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (attrHandler) Update(b *Binding) {
	entries, ok := b.Object()
	if !ok {
		b.Warnf("expected an object literal, got %q", b.Expr)
		return
	}
	for _, e := range entries {
		v := b.Eval(e.Value)
		if v == nil || v == false {
			dom.RemoveAttr(b.Node, e.Key)
			continue
		}
		dom.SetAttr(b.Node, e.Key, toText(v))
	}
}

type cssHandler struct{}

func (h cssHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (cssHandler) Update(b *Binding) {
	if entries, ok := b.Object(); ok {
		for _, e := range entries {
			dom.ToggleClass(b.Node, e.Key, truthy(b.Eval(e.Value)))
		}
		return
	}

	// string form: the value is a class list replacing the previous one
	next := toText(b.Value())
	if prev, ok := b.State().(string); ok && prev != next {
		dom.ToggleClass(b.Node, prev, false)
	}
	dom.ToggleClass(b.Node, next, true)
	b.SetState(next)
}

type styleHandler struct{}

func (h styleHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (styleHandler) Update(b *Binding) {
	entries, ok := b.Object()
	if !ok {
		b.Warnf("expected an object literal, got %q", b.Expr)
		return
	}
	for _, e := range entries {
		v := b.Eval(e.Value)
		s := ""
		if v != nil && v != false {
			s = toText(v)
		}
		dom.SetStyle(b.Node, dom.CSSProperty(e.Key), s)
	}
}

type valueHandler struct{}

func (h valueHandler) Init(b *Binding) Control {
	if b.Node.DataAtom == atom.Select {
		// options are rendered after Init
		return Control{AfterChildren: func() { h.Update(b) }}
	}
	h.Update(b)
	return Control{}
}

func (valueHandler) Update(b *Binding) {
	s := toText(b.Value())
	switch b.Node.DataAtom {
	case atom.Textarea:
		if dom.TextContent(b.Node) != s {
			dom.SetText(b.Node, s)
		}
	case atom.Select:
		for _, opt := range options(b.Node) {
			dom.SetBoolAttr(opt, "selected", optionValue(opt) == s)
		}
	default:
		dom.SetAttr(b.Node, "value", s)
	}
}

func options(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Option {
			out = append(out, c)
			continue
		}
		out = append(out, options(c)...)
	}
	return out
}

func optionValue(opt *html.Node) string {
	if v, ok := dom.Attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(dom.TextContent(opt))
}

type checkedHandler struct{}

func (h checkedHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (checkedHandler) Update(b *Binding) {
	v := b.Value()
	own, hasValue := dom.Attr(b.Node, "value")
	typ, _ := dom.Attr(b.Node, "type")

	var on bool
	switch {
	case strings.EqualFold(typ, "radio"):
		on = hasValue && toText(v) == own
	case hasValue && isList(v):
		on = containsText(v, own)
	default:
		on = truthy(v)
	}
	dom.SetBoolAttr(b.Node, "checked", on)
}

type boolAttrHandler struct {
	attr   string
	negate bool
}

func (h boolAttrHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (h boolAttrHandler) Update(b *Binding) {
	dom.SetBoolAttr(b.Node, h.attr, truthy(b.Value()) != h.negate)
}

type visibleHandler struct{}

func (h visibleHandler) Init(b *Binding) Control {
	h.Update(b)
	return Control{}
}

func (visibleHandler) Update(b *Binding) {
	if truthy(b.Value()) {
		if dom.Style(b.Node, "display") == "none" {
			dom.SetStyle(b.Node, "display", "")
		}
		return
	}
	dom.SetStyle(b.Node, "display", "none")
}

// toText converts a value to its text form; nil is empty.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// truthy reports whether v counts as true in a condition: nil, false,
// zero numbers, NaN, empty strings and nil references are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func containsText(list any, s string) bool {
	rv := reflect.ValueOf(list)
	for i := 0; i < rv.Len(); i++ {
		if toText(rv.Index(i).Interface()) == s {
			return true
		}
	}
	return false
}
