package dom

import (
	"strings"

	"github.com/livefir/htmlizer/internal/traverse"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

var rawTextElements = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
}

// IsVoid reports whether n is a void element (no closing tag).
func IsVoid(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom != 0 {
		return voidElements[n.DataAtom]
	}
	return voidElements[atom.Lookup([]byte(n.Data))]
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
)

// String serializes the sibling range [first, last] (nil last = to the end
// of the sibling list).
func String(first, last *html.Node) string {
	if first == nil {
		return ""
	}
	var b strings.Builder
	traverse.Walk(first, last, func(n *html.Node, ev traverse.Event) traverse.Signal {
		if ev == traverse.Close {
			if n.Type == html.ElementNode && !IsVoid(n) {
				b.WriteString("</")
				b.WriteString(n.Data)
				b.WriteByte('>')
			}
			return traverse.Continue
		}

		switch n.Type {
		case html.ElementNode:
			b.WriteByte('<')
			b.WriteString(n.Data)
			for _, a := range n.Attr {
				b.WriteByte(' ')
				if a.Namespace != "" {
					b.WriteString(a.Namespace)
					b.WriteByte(':')
				}
				b.WriteString(a.Key)
				b.WriteString(`="`)
				b.WriteString(attrEscaper.Replace(a.Val))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		case html.TextNode:
			if p := n.Parent; p != nil && p.Type == html.ElementNode && rawTextElements[p.DataAtom] {
				b.WriteString(n.Data)
			} else {
				b.WriteString(textEscaper.Replace(n.Data))
			}
		case html.CommentNode:
			b.WriteString("<!-- ")
			b.WriteString(strings.TrimSpace(n.Data))
			b.WriteString(" -->")
		case html.DoctypeNode:
			b.WriteString("<!DOCTYPE ")
			b.WriteString(n.Data)
			b.WriteByte('>')
		}
		return traverse.Continue
	})
	return b.String()
}

// FragmentString serializes all children of a fragment or element.
func FragmentString(n *html.Node) string {
	return String(n.FirstChild, nil)
}
