package htmlizer

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/net/html"

	"github.com/livefir/htmlizer/internal/dom"
)

const indexedList = `<ul data-bind="foreach: items"><li data-bind="text: string($index) + ':' + string($data)"></li></ul>`

// TestForeach_IncrementalMatchesFullRender applies random mutations and
// checks that the patched view always equals a fresh render.
func TestForeach_IncrementalMatchesFullRender(t *testing.T) {
	tmpl := mustCompile(t, indexedList)

	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			f := gofakeit.New(seed)
			items := NewObservableArray(nil)
			v := NewView(tmpl, map[string]any{"items": items}, nil, nil)
			v.ToDocumentFragment()

			for step := 0; step < 40; step++ {
				op := mutate(f, items)

				fresh := NewView(tmpl, map[string]any{"items": NewObservableArray(items.Get())}, nil, nil)
				if got, want := v.String(), fresh.String(); got != want {
					t.Fatalf("step %d (%s):\n got %q\nwant %q", step, op, got, want)
				}
			}
		})
	}
}

func mutate(f *gofakeit.Faker, items *ObservableArray) string {
	n := items.Len()
	switch f.Number(0, 9) {
	case 0, 1:
		items.Push(f.Number(0, 20), f.Number(0, 20))
		return "push"
	case 2:
		items.Unshift(f.Number(0, 20))
		return "unshift"
	case 3:
		items.Pop()
		return "pop"
	case 4:
		items.Shift()
		return "shift"
	case 5:
		at := f.Number(0, n)
		items.Splice(at, f.Number(0, 3), f.Number(0, 20))
		return fmt.Sprintf("splice at %d", at)
	case 6:
		items.Sort(func(x, y any) bool { return x.(int) < y.(int) })
		return "sort"
	case 7:
		items.Reverse()
		return "reverse"
	case 8:
		items.Remove(items.At(f.Number(0, n)))
		return "remove"
	default:
		next := items.Get()
		f.ShuffleAnySlice(next)
		items.Set(append(next, f.Number(0, 20)))
		return "set"
	}
}

func TestForeach_DerivedExpressionIsDiffed(t *testing.T) {
	items := NewObservableArray(ints(1, 3, 5))
	v := render(t, `<p data-bind="foreach: filter(items, # > 2)"><b data-bind="text: $data"></b></p>`, map[string]any{"items": items})

	if got := v.String(); got != `<p><b>3</b><b>5</b></p>` {
		t.Fatalf("String() = %q", got)
	}
	kept := v.FirstChild().FirstChild

	items.Unshift(4)
	items.Push(2)
	if got := v.String(); got != `<p><b>4</b><b>3</b><b>5</b></p>` {
		t.Errorf("String() = %q", got)
	}
	if dom.TextContent(kept) != "3" || kept.Parent != v.FirstChild() {
		t.Error("unchanged items must keep their nodes")
	}
}

func TestForeach_SortKeepsNodes(t *testing.T) {
	items := NewObservableArray([]any{"b", "c", "a"})
	v := render(t, indexedList, map[string]any{"items": items})
	ul := v.FirstChild()

	nodes := map[string]*html.Node{}
	for _, li := range elements(ul) {
		nodes[dom.TextContent(li)[2:]] = li
	}

	items.Sort(func(x, y any) bool { return x.(string) < y.(string) })
	if got := v.String(); got != `<ul><li>0:a</li><li>1:b</li><li>2:c</li></ul>` {
		t.Fatalf("String() = %q", got)
	}
	for i, li := range elements(ul) {
		key := dom.TextContent(li)[2:]
		if nodes[key] != li {
			t.Errorf("item %d (%s) was re-rendered", i, key)
		}
	}
}

func TestForeach_SetDiffsAgainstRendered(t *testing.T) {
	list := NewObservable([]string{"a", "b", "c"})
	v := render(t, `<!-- ko foreach: list --><i data-bind="text: $data"></i><!-- /ko -->`, map[string]any{"list": list})

	second := v.FirstChild().NextSibling.NextSibling
	list.Set([]string{"x", "b", "c", "d"})

	want := `<!-- ko foreach: list --><i>x</i><i>b</i><i>c</i><i>d</i><!-- /ko -->`
	if got := v.String(); got != want {
		t.Fatalf("String() = %q", got)
	}
	if v.FirstChild().NextSibling.NextSibling != second {
		t.Error("the retained item must keep its node")
	}
}

func TestForeach_RemovedItemsAreRetired(t *testing.T) {
	label := NewObservable("L")
	items := NewObservableArray([]any{"a", "b"})
	v := render(t, `<div data-bind="foreach: items"><span data-bind="text: $root.label"></span></div>`, map[string]any{
		"items": items,
		"label": label,
	})

	if label.Dependents() != 2 {
		t.Fatalf("Dependents() = %d, want 2", label.Dependents())
	}
	items.Shift()
	if label.Dependents() != 1 {
		t.Errorf("Dependents() after Shift = %d, want 1", label.Dependents())
	}
	label.Set("M")
	if got := v.String(); got != `<div><span>M</span></div>` {
		t.Errorf("String() = %q", got)
	}
}

func TestForeach_IndexFollowsPosition(t *testing.T) {
	items := NewObservableArray([]any{"a", "b", "c"})
	v := render(t, indexedList, map[string]any{"items": items})

	items.Splice(0, 1)
	items.Unshift("z", "y")
	want := `<ul><li>0:z</li><li>1:y</li><li>2:b</li><li>3:c</li></ul>`
	if got := v.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestForeach_EmptyAndNonList(t *testing.T) {
	items := NewObservableArray(nil)
	v := render(t, `<!-- ko foreach: items --><i>x</i><!-- /ko --><b data-bind="foreach: n"><i>y</i></b>`, map[string]any{
		"items": items,
		"n":     5,
	})
	if got := v.String(); got != `<!-- ko foreach: items --><!-- /ko --><b></b>` {
		t.Fatalf("String() = %q", got)
	}

	items.Push(1, 2)
	if got := v.String(); got != `<!-- ko foreach: items --><i>x</i><i>x</i><!-- /ko --><b></b>` {
		t.Errorf("String() = %q", got)
	}
}

func TestForeach_ObservableHoldingArray(t *testing.T) {
	first := NewObservableArray([]any{1, 2})
	list := NewObservable(first)
	v := render(t, `<!-- ko foreach: list --><i data-bind="text: $data"></i><!-- /ko -->`, map[string]any{"list": list})

	if got := v.String(); got != `<!-- ko foreach: list --><i>1</i><i>2</i><!-- /ko -->` {
		t.Fatalf("String() = %q", got)
	}
	kept := v.FirstChild().NextSibling

	first.Push(8)
	if got := v.String(); got != `<!-- ko foreach: list --><i>1</i><i>2</i><i>8</i><!-- /ko -->` {
		t.Errorf("after Push String() = %q", got)
	}
	if v.FirstChild().NextSibling != kept {
		t.Error("a push must not re-render existing items")
	}

	second := NewObservableArray([]any{9})
	list.Set(second)
	first.Push(7)
	second.Unshift(0)
	if got := v.String(); got != `<!-- ko foreach: list --><i>0</i><i>9</i><!-- /ko -->` {
		t.Errorf("after swap String() = %q", got)
	}
}
