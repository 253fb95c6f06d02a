// Package traverse is the single depth-first walker used for templates,
// rendered ranges and serialization.
package traverse

import "golang.org/x/net/html"

// Event tells a visitor whether a node is being entered or left.
type Event int

const (
	Open Event = iota
	// Close fires for element and document nodes only, after their children
	// (or right after Open when the children are skipped).
	Close
)

// Signal steers the walk from inside a visitor.
type Signal int

const (
	// Continue descends into the node's children.
	Continue Signal = iota
	// SkipChildren does not descend; Close still fires.
	SkipChildren
	// SkipSiblings does not descend, closes the current node and ascends to
	// its parent.
	SkipSiblings
	// Abort stops the walk.
	Abort
	// AbortReturn stops the walk and makes Walk return the current node.
	AbortReturn
)

// Func is called with Open and Close events.
type Func func(n *html.Node, ev Event) Signal

// Walk visits the sibling range [first, last] and all descendants in
// document order. A nil last walks to the end of first's sibling list. The
// walked nodes must not be detached by the visitor.
func Walk(first, last *html.Node, fn Func) *html.Node {
	cur := first
	depth := 0

	for cur != nil {
		sig := fn(cur, Open)
		switch sig {
		case Abort:
			return nil
		case AbortReturn:
			return cur
		}
		if sig == Continue && cur.FirstChild != nil {
			cur = cur.FirstChild
			depth++
			continue
		}

		skip := sig == SkipSiblings
		if s := closeOf(cur, fn); s == Abort {
			return nil
		} else if s == AbortReturn {
			return cur
		} else if s == SkipSiblings {
			skip = true
		}

		// advance to the next unvisited node, closing parents on the way up
		for {
			if depth == 0 {
				if skip || cur == last || cur.NextSibling == nil {
					return nil
				}
				cur = cur.NextSibling
				break
			}
			if !skip && cur.NextSibling != nil {
				cur = cur.NextSibling
				break
			}
			cur = cur.Parent
			depth--
			s := closeOf(cur, fn)
			switch s {
			case Abort:
				return nil
			case AbortReturn:
				return cur
			}
			skip = s == SkipSiblings
		}
	}
	return nil
}

// Find returns the first node in the range, descendants included, matching
// pred.
func Find(first, last *html.Node, pred func(*html.Node) bool) *html.Node {
	return Walk(first, last, func(n *html.Node, ev Event) Signal {
		if ev == Open && pred(n) {
			return AbortReturn
		}
		return Continue
	})
}

// Siblings returns the nodes of the range [first, last] without descending.
func Siblings(first, last *html.Node) []*html.Node {
	var out []*html.Node
	Walk(first, last, func(n *html.Node, ev Event) Signal {
		if ev == Open {
			out = append(out, n)
		}
		return SkipChildren
	})
	return out
}

func closeOf(n *html.Node, fn Func) Signal {
	if n.Type == html.ElementNode || n.Type == html.DocumentNode {
		return fn(n, Close)
	}
	return Continue
}
