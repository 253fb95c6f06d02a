package htmlizer

import (
	"errors"
	"testing"
)

func TestContext_Descend(t *testing.T) {
	root := map[string]any{"user": map[string]any{"name": "ann"}}
	c := NewContext(root)
	user := NewObservable(map[string]any{"name": "bob"})

	child := c.Descend(user, nil)
	if child.Data.(map[string]any)["name"] != "bob" {
		t.Error("Data must be unwrapped")
	}
	if child.RawData != user {
		t.Error("RawData must keep the observable")
	}
	if child.ParentContext != c || child.Root == nil {
		t.Error("parent links")
	}

	grandchild := child.Descend("leaf", nil)
	if len(grandchild.Parents) != 2 {
		t.Fatalf("Parents = %v", grandchild.Parents)
	}
	if grandchild.Parents[1].(map[string]any)["user"] == nil {
		t.Error("$parents must end at the root data")
	}
}

func TestContext_AliasInheritance(t *testing.T) {
	c := NewContext(nil)
	child := c.Descend("x", func(ctx *Context) {
		ctx.Alias("item", "x")
	})
	grandchild := child.Descend("y", nil)

	if _, ok := c.Lookup("item"); ok {
		t.Error("alias must not leak into the parent")
	}
	if v, ok := grandchild.Lookup("item"); !ok || v != "x" {
		t.Error("alias must be visible to descendants")
	}

	grandchild.Alias("item", "z")
	if v, _ := child.Lookup("item"); v != "x" {
		t.Error("re-aliasing must not modify the ancestor")
	}
}

func TestContext_Env(t *testing.T) {
	type person struct {
		Name  string `json:"name"`
		Email string
		age   int
	}
	c := NewContext(map[string]any{"title": "T"}).Descend(&person{Name: "ann", Email: "a@x", age: 3}, func(ctx *Context) {
		ctx.Index = NewObservable(2)
		ctx.Alias("Name", "alias wins")
	})
	env := c.Env()

	checks := map[string]any{
		"name":  "ann",
		"Email": "a@x",
		"Name":  "alias wins",
	}
	for k, want := range checks {
		if env[k] != want {
			t.Errorf("env[%q] = %v, want %v", k, env[k], want)
		}
	}
	if _, ok := env["age"]; ok {
		t.Error("unexported fields must not be visible")
	}
	if env["$index"] != c.Index {
		t.Error("$index must be the index observable")
	}
	if env["$parent"].(map[string]any)["title"] != "T" {
		t.Error("$parent")
	}
	if env["$context"] != c {
		t.Error("$context")
	}

	if _, ok := NewContext(nil).Env()["$index"]; ok {
		t.Error("$index must be absent outside foreach")
	}
}

func TestContext_Resolve(t *testing.T) {
	root := map[string]any{
		"user": NewObservable(map[string]any{"name": "ann"}),
		"n":    1,
	}
	c := NewContext(root).Descend(map[string]any{"k": "v"}, func(ctx *Context) {
		ctx.Index = NewObservable(4)
		ctx.Alias("it", map[string]any{"id": 7})
	})

	tests := []struct {
		path string
		want any
	}{
		{"$root.user.name", "ann"},
		{"$root.n", 1},
		{"$parent.n", 1},
		{"k", "v"},
		{"$data.k", "v"},
		{"it.id", 7},
		{"$index", 4},
	}
	for _, tt := range tests {
		got, err := c.Resolve(tt.path)
		if err != nil {
			t.Errorf("Resolve(%q) error = %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	_, err := c.Resolve("$root.user.missing")
	var refErr *ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("error = %v, want *ReferenceError", err)
	}
	if refErr.Segment != "missing" || refErr.Path != "$root.user.missing" {
		t.Errorf("ReferenceError = %+v", refErr)
	}

	if _, err := NewContext(nil).Resolve("$index"); !errors.As(err, &refErr) {
		t.Errorf("$index outside foreach: error = %v", err)
	}
}
