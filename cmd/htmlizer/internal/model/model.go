// Package model loads YAML data files into observable models for the
// htmlizer command.
package model

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/livefir/htmlizer"
)

// Model is the root data of a page: every top-level key of the data file
// becomes an Observable, or an ObservableArray for lists.
type Model struct {
	values map[string]any
}

// Load reads a data file into a new Model.
func Load(path string) (*Model, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}
	return New(data), nil
}

// Read parses a YAML data file into plain values.
func Read(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	data := make(map[string]any)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data %s: %w", path, err)
	}
	return data, nil
}

// New wraps plain values.
func New(data map[string]any) *Model {
	m := &Model{values: make(map[string]any, len(data))}
	for k, v := range data {
		if list, ok := v.([]any); ok {
			m.values[k] = htmlizer.NewObservableArray(list)
		} else {
			m.values[k] = htmlizer.NewObservable(v)
		}
	}
	return m
}

// Data returns the render data: a map from key to observable.
func (m *Model) Data() map[string]any {
	return m.values
}

// Observables returns every value in key order.
func (m *Model) Observables() []htmlizer.Subscribable {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]htmlizer.Subscribable, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.values[k].(htmlizer.Subscribable))
	}
	return out
}

// Apply writes changed values into the existing observables and returns
// the keys it could not apply. Keys absent from the original data have no
// bindings and are skipped.
func (m *Model) Apply(data map[string]any) []string {
	var skipped []string
	for k, v := range data {
		switch o := m.values[k].(type) {
		case *htmlizer.ObservableArray:
			list, ok := v.([]any)
			if !ok {
				skipped = append(skipped, k)
				continue
			}
			if !reflect.DeepEqual(o.Get(), list) {
				o.Set(list)
			}
		case *htmlizer.Observable:
			if !reflect.DeepEqual(o.Get(), v) {
				o.Set(v)
			}
		default:
			skipped = append(skipped, k)
		}
	}
	sort.Strings(skipped)
	return skipped
}
