package htmlizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/livefir/htmlizer/internal/bindparse"
	"github.com/livefir/htmlizer/internal/dom"
	"github.com/livefir/htmlizer/internal/traverse"
)

var (
	startMarker = regexp.MustCompile(`^\s*([a-z]+)\s+([A-Za-z_$][\w$-]*)\s*:([\s\S]*?)\s*$`)
	endMarker   = regexp.MustCompile(`^\s*/([a-z]+)\s*$`)
)

// controlBindings compile their scoped content into a child Template.
var controlBindings = map[string]bool{
	"if":      true,
	"ifnot":   true,
	"with":    true,
	"foreach": true,
}

// exclusiveBindings each take over an element's descendants, so at most one
// may appear on an element.
var exclusiveBindings = []string{"if", "ifnot", "with", "foreach", "text", "html"}

// objectBindings take an object literal whose entries are evaluated
// separately.
var objectBindings = map[string]bool{
	"attr":    true,
	"css":     true,
	"style":   true,
	"foreach": true,
}

// modifierKeys are read by other bindings on the same node.
var modifierKeys = map[string]bool{
	"as": true,
}

// Block is a comment-delimited region: <!-- ko keyword: expr --> ... <!-- /ko -->.
type Block struct {
	Keyword string
	Prefix  string
	Start   *html.Node
	End     *html.Node
}

// TemplateNode is the compiled binding information for one template node.
type TemplateNode struct {
	ID      int
	Node    *html.Node
	Depth   int
	Binding string
	Pairs   []bindparse.Pair
	Block   *Block
	Child   *Template

	objects map[string][]bindparse.Pair
}

// Object returns the parsed entries of an object-valued binding.
func (tn *TemplateNode) Object(key string) ([]bindparse.Pair, bool) {
	pairs, ok := tn.objects[key]
	return pairs, ok
}

// Option returns the raw expression of a sibling binding key.
func (tn *TemplateNode) Option(key string) (string, bool) {
	for _, p := range tn.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Template is a compiled, immutable template. It is built once and
// rendered any number of times by Views.
type Template struct {
	frag   *html.Node
	depth  int
	nodes  []*TemplateNode
	byNode map[*html.Node]*TemplateNode
	cfg    *Config
}

// Compile parses markup and compiles it.
func Compile(markup string, opts ...Option) (*Template, error) {
	frag, err := dom.ParseFragment(markup)
	if err != nil {
		return nil, &CompileError{Kind: KindMarkup, Err: err}
	}
	return compile(frag, 0, newConfig(opts))
}

// MustCompile is like Compile but panics on error.
func MustCompile(markup string, opts ...Option) *Template {
	t, err := Compile(markup, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// CompileNode compiles a copy of an existing node. A document node
// contributes its children; any other node is compiled on its own.
func CompileNode(n *html.Node, opts ...Option) (*Template, error) {
	if n == nil {
		return nil, &CompileError{Kind: KindMarkup, Err: errors.New("nil node")}
	}
	frag := dom.NewFragment()
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			frag.AppendChild(dom.CloneDeep(c))
		}
	} else {
		frag.AppendChild(dom.CloneDeep(n))
	}
	return compile(frag, 0, newConfig(opts))
}

// Depth returns the nesting level; top-level templates are 0.
func (t *Template) Depth() int {
	return t.depth
}

// Nodes returns the bound nodes in document order.
func (t *Template) Nodes() []*TemplateNode {
	return t.nodes
}

// Config returns the configuration the template was compiled with.
func (t *Template) Config() *Config {
	return t.cfg
}

// String serializes the template markup, bindings included.
func (t *Template) String() string {
	return dom.FragmentString(t.frag)
}

func (t *Template) lookup(n *html.Node) *TemplateNode {
	return t.byNode[n]
}

func compile(frag *html.Node, depth int, cfg *Config) (*Template, error) {
	t := &Template{
		frag:   frag,
		depth:  depth,
		byNode: make(map[*html.Node]*TemplateNode),
		cfg:    cfg,
	}

	blocks, err := matchBlocks(frag, cfg)
	if err != nil {
		return nil, err
	}
	if err := t.index(blocks); err != nil {
		return nil, err
	}
	return t, nil
}

// matchBlocks pairs start and end comment markers. A start marker must be
// closed among its own siblings; an end marker with nothing open at its
// level is reported and ignored.
func matchBlocks(frag *html.Node, cfg *Config) (map[*html.Node]*Block, error) {
	type open struct {
		block  *Block
		parent *html.Node
	}
	var stack []open
	blocks := make(map[*html.Node]*Block)
	prefixes := cfg.Prefixes()

	var err error
	traverse.Walk(frag.FirstChild, nil, func(n *html.Node, ev traverse.Event) traverse.Signal {
		if ev == traverse.Close {
			if len(stack) > 0 && stack[len(stack)-1].parent == n {
				err = &CompileError{Kind: KindMissingEndTag, Keyword: stack[len(stack)-1].block.Keyword}
				return traverse.Abort
			}
			return traverse.Continue
		}
		if n.Type != html.CommentNode {
			return traverse.Continue
		}

		if m := startMarker.FindStringSubmatch(n.Data); m != nil && hasPrefix(prefixes, m[1]) {
			stack = append(stack, open{
				block:  &Block{Keyword: m[2], Prefix: m[1], Start: n},
				parent: n.Parent,
			})
			return traverse.Continue
		}
		if m := endMarker.FindStringSubmatch(n.Data); m != nil && hasPrefix(prefixes, m[1]) {
			if len(stack) == 0 || stack[len(stack)-1].parent != n.Parent {
				cfg.warnf("extra end tag %q ignored", strings.TrimSpace(n.Data))
				return traverse.Continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.block.End = n
			blocks[top.block.Start] = top.block
		}
		return traverse.Continue
	})
	if err != nil {
		return nil, err
	}
	if len(stack) > 0 {
		return nil, &CompileError{Kind: KindMissingEndTag, Keyword: stack[len(stack)-1].block.Keyword}
	}
	return blocks, nil
}

func hasPrefix(prefixes []string, p string) bool {
	for _, want := range prefixes {
		if p == want {
			return true
		}
	}
	return false
}

// index records every bound element and bound comment block of this
// template level, compiling control-flow content into child templates.
func (t *Template) index(blocks map[*html.Node]*Block) error {
	attr := t.cfg.Attribute()
	var ignoreTill *html.Node
	var err error

	traverse.Walk(t.frag.FirstChild, nil, func(n *html.Node, ev traverse.Event) traverse.Signal {
		if ev == traverse.Close {
			return traverse.Continue
		}
		if ignoreTill != nil {
			if n != ignoreTill {
				return traverse.SkipChildren
			}
			ignoreTill = nil
		}

		switch n.Type {
		case html.ElementNode:
			raw, ok := dom.Attr(n, attr)
			if !ok {
				return traverse.Continue
			}
			var tn *TemplateNode
			tn, err = t.bindElement(n, raw)
			if err != nil {
				return traverse.Abort
			}
			if tn.Child != nil || hasAny(tn.Pairs, "text", "html") {
				return traverse.SkipChildren
			}

		case html.CommentNode:
			block, ok := blocks[n]
			if !ok {
				return traverse.Continue
			}
			var skip bool
			skip, err = t.bindBlock(block)
			if err != nil {
				return traverse.Abort
			}
			if skip {
				ignoreTill = block.End
			}
		}
		return traverse.Continue
	})
	return err
}

func (t *Template) bindElement(n *html.Node, raw string) (*TemplateNode, error) {
	pairs, err := bindparse.Parse(raw)
	if err != nil {
		return nil, &CompileError{Kind: KindParse, Binding: raw, Err: err}
	}

	var exclusive []string
	for _, key := range exclusiveBindings {
		if hasAny(pairs, key) {
			exclusive = append(exclusive, key)
		}
	}
	if len(exclusive) > 1 {
		return nil, &CompileError{Kind: KindConflictingBindings, Keys: exclusive[:2], Binding: raw}
	}

	tn, err := t.addNode(n, raw, pairs)
	if err != nil {
		return nil, err
	}

	if control := firstControl(pairs); control != "" {
		content := dom.NewFragment()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			content.AppendChild(dom.CloneDeep(c))
		}
		if tn.Child, err = compile(content, t.depth+1, t.cfg); err != nil {
			return nil, err
		}
	}
	return tn, nil
}

// bindBlock records a comment block and reports whether its body belongs to
// the block rather than to this template level.
func (t *Template) bindBlock(b *Block) (bool, error) {
	if _, ok := t.cfg.Registry.Lookup(b.Keyword); !ok {
		t.hint(b.Keyword, b.Start.Data)
		return false, nil
	}

	_, rest, _ := strings.Cut(strings.TrimSpace(b.Start.Data), ":")
	raw := b.Keyword + ":" + rest
	pairs, err := bindparse.Parse(raw)
	if err != nil {
		return false, &CompileError{Kind: KindParse, Binding: raw, Err: err}
	}

	tn, err := t.addNode(b.Start, raw, pairs)
	if err != nil {
		return false, err
	}
	tn.Block = b

	switch {
	case controlBindings[b.Keyword]:
		content := dom.NewFragment()
		for c := b.Start.NextSibling; c != nil && c != b.End; c = c.NextSibling {
			content.AppendChild(dom.CloneDeep(c))
		}
		if tn.Child, err = compile(content, t.depth+1, t.cfg); err != nil {
			return false, err
		}
		return true, nil
	case b.Keyword == "text":
		return true, nil
	}
	return false, nil
}

func (t *Template) addNode(n *html.Node, raw string, pairs []bindparse.Pair) (*TemplateNode, error) {
	tn := &TemplateNode{
		ID:      len(t.nodes),
		Node:    n,
		Depth:   t.depth,
		Binding: raw,
		Pairs:   pairs,
	}

	for _, p := range pairs {
		if objectBindings[p.Key] && bindparse.IsObject(p.Value) {
			sub, err := bindparse.ParseObject(p.Value)
			if err != nil {
				return nil, &CompileError{Kind: KindParse, Binding: raw, Err: err}
			}
			if tn.objects == nil {
				tn.objects = make(map[string][]bindparse.Pair)
			}
			tn.objects[p.Key] = sub
		}
		if _, ok := t.cfg.Registry.Lookup(p.Key); !ok && !modifierKeys[p.Key] {
			t.hint(p.Key, raw)
		}
	}

	t.nodes = append(t.nodes, tn)
	t.byNode[n] = tn
	return tn, nil
}

// hint logs a likely typo in a binding name. Unknown names are otherwise
// ignored so bindings for other engines can share the markup.
func (t *Template) hint(name, raw string) {
	if s := t.cfg.Registry.Suggest(name); s != "" && s != name {
		t.cfg.warnf("unknown binding %q in %q, did you mean %q?", name, strings.TrimSpace(raw), s)
	}
}

func firstControl(pairs []bindparse.Pair) string {
	for _, p := range pairs {
		if controlBindings[p.Key] {
			return p.Key
		}
	}
	return ""
}

func hasAny(pairs []bindparse.Pair, keys ...string) bool {
	for _, p := range pairs {
		for _, k := range keys {
			if p.Key == k {
				return true
			}
		}
	}
	return false
}

func (tn *TemplateNode) String() string {
	return fmt.Sprintf("#%d@%d %s", tn.ID, tn.Depth, tn.Binding)
}
