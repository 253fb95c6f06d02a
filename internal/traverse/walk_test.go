package traverse

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func parse(t *testing.T, markup string) []*html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		t.Fatalf("ParseFragment: %v", err)
	}
	frag := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		frag.AppendChild(n)
	}
	return nodes
}

func label(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return n.Data
	case html.TextNode:
		return "#" + n.Data
	case html.CommentNode:
		return "!" + strings.TrimSpace(n.Data)
	}
	return "?"
}

func record(nodes []*html.Node, last *html.Node, signals map[string]Signal) []string {
	var out []string
	Walk(nodes[0], last, func(n *html.Node, ev Event) Signal {
		prefix := "+"
		if ev == Close {
			prefix = "-"
		}
		out = append(out, prefix+label(n))
		if ev == Open {
			if s, ok := signals[label(n)]; ok {
				return s
			}
		}
		return Continue
	})
	return out
}

func TestWalk(t *testing.T) {
	markup := `<div><p>a</p><span>b</span></div><!--c--><em>d</em>`

	tests := []struct {
		name    string
		signals map[string]Signal
		want    string
	}{
		{
			name: "full walk",
			want: "+div +p +#a -p +span +#b -span -div +!c +em +#d -em",
		},
		{
			name:    "skip children",
			signals: map[string]Signal{"div": SkipChildren},
			want:    "+div -div +!c +em +#d -em",
		},
		{
			name:    "skip siblings ascends",
			signals: map[string]Signal{"p": SkipSiblings},
			want:    "+div +p -p -div +!c +em +#d -em",
		},
		{
			name:    "abort",
			signals: map[string]Signal{"span": Abort},
			want:    "+div +p +#a -p +span",
		},
		{
			name:    "skip siblings at top level ends the walk",
			signals: map[string]Signal{"!c": SkipSiblings},
			want:    "+div +p +#a -p +span +#b -span -div +!c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := parse(t, markup)
			got := strings.Join(record(nodes, nil, tt.signals), " ")
			if got != tt.want {
				t.Errorf("walk = %q\nwant   %q", got, tt.want)
			}
		})
	}
}

func TestWalk_Range(t *testing.T) {
	nodes := parse(t, `<i>1</i><b>2</b><u>3</u>`)
	got := strings.Join(record(nodes, nodes[1], nil), " ")
	want := "+i +#1 -i +b +#2 -b"
	if got != want {
		t.Errorf("walk = %q, want %q", got, want)
	}
}

func TestFind(t *testing.T) {
	nodes := parse(t, `<div><p>a</p><span id="x">b</span></div>`)
	found := Find(nodes[0], nil, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "span"
	})
	if found == nil || found.Data != "span" {
		t.Fatalf("Find returned %v", found)
	}
	if Find(nodes[0], nil, func(n *html.Node) bool { return n.Data == "table" }) != nil {
		t.Error("expected nil for missing node")
	}
}

func TestSiblings(t *testing.T) {
	nodes := parse(t, `<i>1</i>text<b>2</b>`)
	sibs := Siblings(nodes[0], nil)
	if len(sibs) != 3 {
		t.Fatalf("expected 3 siblings, got %d", len(sibs))
	}
	if sibs[1].Type != html.TextNode {
		t.Errorf("expected text node in the middle, got %v", sibs[1].Type)
	}
}
