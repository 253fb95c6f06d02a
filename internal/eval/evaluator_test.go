package eval

import (
	"strings"
	"testing"
)

type box struct{ V any }

type user struct {
	Name  string
	Admin bool
}

func (u user) Greeting() string { return "hi " + u.Name }

func TestEval(t *testing.T) {
	ev := New()

	tests := []struct {
		name string
		src  string
		env  map[string]any
		want any
	}{
		{"identifier", "label", map[string]any{"label": "Hi"}, "Hi"},
		{"dollar identifiers", "$data + 1", map[string]any{"$data": 2}, 3},
		{"member access", "$root.user.Name", map[string]any{"$root": map[string]any{"user": user{Name: "ann"}}}, "ann"},
		{"method call", "u.Greeting()", map[string]any{"u": user{Name: "bo"}}, "hi bo"},
		{"builtin", "len(items)", map[string]any{"items": []any{1, 2, 3}}, 3},
		{"ternary with quotes", "ok ? 'yes' : 'no'", map[string]any{"ok": true}, "yes"},
		{"function from env", "shout(name)", map[string]any{"name": "x", "shout": strings.ToUpper}, "X"},
		{"undefined variable", "missing", map[string]any{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Eval(tt.src, tt.env, nil)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.src, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %#v, want %#v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEval_UnwrapsIdentifiersAndMembers(t *testing.T) {
	ev := New()
	var seen []any
	unwrap := func(v any) any {
		seen = append(seen, v)
		if b, ok := v.(*box); ok {
			return b.V
		}
		return v
	}

	env := map[string]any{
		"label": &box{V: "Hi"},
		"model": map[string]any{"count": &box{V: 4}},
	}

	got, err := ev.Eval("label + '!'", env, unwrap)
	if err != nil {
		t.Fatalf("Eval error = %v", err)
	}
	if got != "Hi!" {
		t.Errorf("Eval = %#v, want %q", got, "Hi!")
	}

	got, err = ev.Eval("model.count * 2", env, unwrap)
	if err != nil {
		t.Fatalf("Eval error = %v", err)
	}
	if got != 8 {
		t.Errorf("Eval = %#v, want 8", got)
	}
	if len(seen) == 0 {
		t.Error("unwrap hook was never called")
	}
}

func TestEval_Errors(t *testing.T) {
	ev := New()
	for _, src := range []string{"1 +", "a.b.c(", "1 / 'a'"} {
		t.Run(src, func(t *testing.T) {
			if _, err := ev.Eval(src, map[string]any{}, nil); err == nil {
				t.Errorf("expected error for %q", src)
			}
		})
	}
}

func TestCompile_Caches(t *testing.T) {
	ev := New()
	p1, err := ev.Compile("a + b")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ev.Compile("a + b")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("expected the cached program to be reused")
	}
	if ev.Cached() != 1 {
		t.Errorf("Cached() = %d, want 1", ev.Cached())
	}
}
