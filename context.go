package htmlizer

import (
	"reflect"
	"strings"
)

// Context is one level of the scope chain binding expressions evaluate
// against. Contexts are never modified after Descend returns them.
type Context struct {
	Root          any
	Parent        any
	Parents       []any
	Data          any // unwrapped
	RawData       any
	Index         *Observable // set for foreach items
	ParentContext *Context

	names map[string]any
}

// NewContext returns a root context for data.
func NewContext(data any) *Context {
	return &Context{
		Root:    data,
		Data:    Unwrap(data),
		RawData: data,
	}
}

// Descend returns a child context whose $data is data and whose $parent is
// the receiver's $data. extend may set Index or aliases on the child before
// it is shared.
func (c *Context) Descend(data any, extend func(*Context)) *Context {
	parents := make([]any, 0, len(c.Parents)+1)
	parents = append(parents, c.Data)
	parents = append(parents, c.Parents...)

	child := &Context{
		Root:          c.Root,
		Parent:        c.Data,
		Parents:       parents,
		Data:          Unwrap(data),
		RawData:       data,
		ParentContext: c,
		names:         c.names,
	}
	if extend != nil {
		extend(child)
	}
	return child
}

// Alias makes value available to this context and every context descended
// from it under name.
func (c *Context) Alias(name string, value any) {
	names := make(map[string]any, len(c.names)+1)
	for k, v := range c.names {
		names[k] = v
	}
	names[name] = value
	c.names = names
}

// Lookup returns the aliased value for name.
func (c *Context) Lookup(name string) (any, bool) {
	v, ok := c.names[name]
	return v, ok
}

// Env builds the expression scope: the fields of $data first, then the
// context variables and aliases, which win on collision.
func (c *Context) Env() map[string]any {
	env := make(map[string]any, 16)
	spread(env, c.Data)
	for k, v := range c.names {
		env[k] = v
	}
	env["$context"] = c
	env["$root"] = c.Root
	env["$parent"] = c.Parent
	env["$parents"] = c.Parents
	env["$data"] = c.RawData
	env["$rawData"] = c.RawData
	if c.Index != nil {
		env["$index"] = c.Index
	}
	return env
}

// Resolve follows a dotted reference such as $root.user.name or
// alias.field. Observables along the path are unwrapped without tracking.
// A missing segment is a *ReferenceError.
func (c *Context) Resolve(path string) (any, error) {
	segments := strings.Split(path, ".")
	head := segments[0]

	var cur any
	switch head {
	case "$root":
		cur = c.Root
	case "$data":
		cur = c.RawData
	case "$parent":
		cur = c.Parent
	case "$rawData":
		cur = c.RawData
	case "$index":
		if c.Index == nil {
			return nil, &ReferenceError{Path: path, Segment: head}
		}
		cur = c.Index
	default:
		if v, ok := c.names[head]; ok {
			cur = v
		} else if v, ok := field(Unwrap(c.Data), head); ok {
			cur = v
		} else {
			return nil, &ReferenceError{Path: path, Segment: head}
		}
	}

	for _, seg := range segments[1:] {
		v, ok := field(Unwrap(cur), seg)
		if !ok {
			return nil, &ReferenceError{Path: path, Segment: seg}
		}
		cur = v
	}
	return Unwrap(cur), nil
}

// spread copies the keys of a string-keyed map, or the exported fields of a
// struct (by name and by json tag), into env.
func spread(env map[string]any, data any) {
	if m, ok := data.(map[string]any); ok {
		for k, v := range m {
			env[k] = v
		}
		return
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return
		}
		iter := val.MapRange()
		for iter.Next() {
			env[iter.Key().String()] = iter.Value().Interface()
		}
	case reflect.Struct:
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			f := typ.Field(i)
			if !f.IsExported() {
				continue
			}
			v := val.Field(i).Interface()
			env[f.Name] = v
			if name := jsonName(f); name != "" && name != f.Name {
				env[name] = v
			}
		}
	}
}

// field reads one named member of a map or struct.
func field(data any, name string) (any, bool) {
	if m, ok := data.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil, false
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := val.MapIndex(reflect.ValueOf(name).Convert(val.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			f := typ.Field(i)
			if f.IsExported() && (f.Name == name || jsonName(f) == name) {
				return val.Field(i).Interface(), true
			}
		}
	}
	return nil, false
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	return tag
}
