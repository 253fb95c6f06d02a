// Package dom holds the node plumbing shared by the compiler and the views:
// fragments, cloning, range moves, attribute helpers and serialization over
// golang.org/x/net/html nodes.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewFragment returns an empty detached container. A document node plays
// the part of a DocumentFragment: its children are the fragment's contents.
func NewFragment() *html.Node {
	return &html.Node{Type: html.DocumentNode}
}

// ParseFragment parses markup in <body> context into a new fragment.
func ParseFragment(markup string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return ParseInto(markup, body)
}

// ParseInto parses markup as the children of context, returning a fragment.
// A nil context parses a whole document and keeps the body contents.
func ParseInto(markup string, context *html.Node) (*html.Node, error) {
	if context != nil && context.Type != html.ElementNode {
		context = nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML fragment: %w", err)
	}

	frag := NewFragment()
	for _, n := range nodes {
		for _, extracted := range extractFromWrappers(n) {
			Detach(extracted)
			frag.AppendChild(extracted)
		}
	}
	return frag, nil
}

// extractFromWrappers unwraps html/head/body elements the parser adds for
// document-level markup, keeping the body contents.
func extractFromWrappers(n *html.Node) []*html.Node {
	if n.Type != html.ElementNode {
		return []*html.Node{n}
	}
	switch n.DataAtom {
	case atom.Html:
		var out []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Head {
				continue
			}
			out = append(out, extractFromWrappers(c)...)
		}
		return out
	case atom.Body:
		return Children(n)
	}
	return []*html.Node{n}
}

// Children returns a snapshot of n's children.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// CloneShallow copies a node without its children or tree links.
func CloneShallow(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// CloneDeep copies a node and its whole subtree.
func CloneDeep(n *html.Node) *html.Node {
	c := CloneShallow(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(CloneDeep(child))
	}
	return c
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Range returns the sibling run [first, last].
func Range(first, last *html.Node) []*html.Node {
	var out []*html.Node
	for n := first; n != nil; n = n.NextSibling {
		out = append(out, n)
		if n == last {
			break
		}
	}
	return out
}

// MoveRange moves the sibling run [first, last] under parent, before the
// given node (nil appends).
func MoveRange(first, last, parent, before *html.Node) {
	if first == nil {
		return
	}
	for _, n := range Range(first, last) {
		Detach(n)
		parent.InsertBefore(n, before)
	}
}

// InsertChildren moves every child of frag under parent, before the given
// node (nil appends). frag is left empty.
func InsertChildren(frag, parent, before *html.Node) {
	for _, n := range Children(frag) {
		frag.RemoveChild(n)
		parent.InsertBefore(n, before)
	}
}

// RemoveChildren detaches every child of n.
func RemoveChildren(n *html.Node) {
	for _, c := range Children(n) {
		n.RemoveChild(c)
	}
}

// SetText replaces n's children with a single text node and returns it.
func SetText(n *html.Node, text string) *html.Node {
	if n.FirstChild != nil && n.FirstChild == n.LastChild && n.FirstChild.Type == html.TextNode {
		if n.FirstChild.Data != text {
			n.FirstChild.Data = text
		}
		return n.FirstChild
	}
	RemoveChildren(n)
	t := &html.Node{Type: html.TextNode, Data: text}
	n.AppendChild(t)
	return t
}

// TextContent concatenates the text of n's subtree.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(TextContent(c))
	}
	return b.String()
}

// Attr returns the value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets attribute key, reporting whether the node changed.
func SetAttr(n *html.Node, key, val string) bool {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			if n.Attr[i].Val == val {
				return false
			}
			n.Attr[i].Val = val
			return true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return true
}

// RemoveAttr removes attribute key, reporting whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// SetBoolAttr reflects a boolean property such as checked or disabled.
func SetBoolAttr(n *html.Node, key string, on bool) bool {
	if on {
		if _, ok := Attr(n, key); ok {
			return false
		}
		return SetAttr(n, key, "")
	}
	return RemoveAttr(n, key)
}

// HasClass reports whether class is in n's class list.
func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// ToggleClass adds or removes every class named in classes (space separated).
func ToggleClass(n *html.Node, classes string, on bool) bool {
	v, _ := Attr(n, "class")
	list := strings.Fields(v)
	changed := false
	for _, class := range strings.Fields(classes) {
		idx := -1
		for i, c := range list {
			if c == class {
				idx = i
				break
			}
		}
		switch {
		case on && idx < 0:
			list = append(list, class)
			changed = true
		case !on && idx >= 0:
			list = append(list[:idx], list[idx+1:]...)
			changed = true
		}
	}
	if !changed {
		return false
	}
	if len(list) == 0 {
		RemoveAttr(n, "class")
	} else {
		SetAttr(n, "class", strings.Join(list, " "))
	}
	return true
}

// Style returns the value of a single inline style property.
func Style(n *html.Node, prop string) string {
	v, _ := Attr(n, "style")
	for _, decl := range parseStyle(v) {
		if decl[0] == prop {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets an inline style property; an empty value removes it.
func SetStyle(n *html.Node, prop, value string) bool {
	v, _ := Attr(n, "style")
	decls := parseStyle(v)
	found := false
	out := decls[:0]
	for _, d := range decls {
		if d[0] == prop {
			found = true
			if value == "" {
				continue
			}
			if d[1] == value {
				return false
			}
			d[1] = value
		}
		out = append(out, d)
	}
	if !found {
		if value == "" {
			return false
		}
		out = append(out, [2]string{prop, value})
	}
	if len(out) == 0 {
		return RemoveAttr(n, "style")
	}
	parts := make([]string, len(out))
	for i, d := range out {
		parts[i] = d[0] + ": " + d[1]
	}
	return SetAttr(n, "style", strings.Join(parts, "; ")+";")
}

// CSSProperty converts a camelCase property name (fontWeight) to its CSS
// form (font-weight).
func CSSProperty(name string) string {
	if strings.Contains(name, "-") {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('-')
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

func parseStyle(v string) [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(v, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, [2]string{name, strings.TrimSpace(value)})
	}
	return out
}
