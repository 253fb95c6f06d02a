package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livefir/htmlizer"
)

func writeData(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	m, err := Load(writeData(t, "title: Hello\ncount: 2\nitems:\n  - a\n  - b\n"))
	require.NoError(t, err)

	data := m.Data()
	require.IsType(t, &htmlizer.Observable{}, data["title"])
	require.IsType(t, &htmlizer.ObservableArray{}, data["items"])
	assert.Equal(t, "Hello", data["title"].(*htmlizer.Observable).Get())
	assert.Equal(t, 2, data["items"].(*htmlizer.ObservableArray).Len())
	assert.Len(t, m.Observables(), 3)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read data")

	_, err = Load(writeData(t, "title: [\n"))
	assert.ErrorContains(t, err, "failed to parse data")
}

func TestApply(t *testing.T) {
	m := New(map[string]any{
		"title": "a",
		"items": []any{"x"},
	})
	title := m.Data()["title"].(*htmlizer.Observable)
	items := m.Data()["items"].(*htmlizer.ObservableArray)

	writes := 0
	title.Subscribe(func(any) { writes++ })
	items.Subscribe(func(any) { writes++ })

	skipped := m.Apply(map[string]any{
		"title": "a",
		"items": []any{"x"},
	})
	assert.Empty(t, skipped)
	assert.Equal(t, 0, writes, "unchanged values must not be written")

	skipped = m.Apply(map[string]any{
		"title": "b",
		"items": "not a list",
		"extra": 1,
	})
	assert.Equal(t, []string{"extra", "items"}, skipped)
	assert.Equal(t, "b", title.Get())
	assert.Equal(t, 1, writes)
}

func TestApply_RendersThroughView(t *testing.T) {
	m := New(map[string]any{"items": []any{"a"}})
	tmpl, err := htmlizer.Compile(`<ul data-bind="foreach: items"><li data-bind="text: $data"></li></ul>`)
	require.NoError(t, err)
	v := htmlizer.NewView(tmpl, m.Data(), nil, nil)
	v.ToDocumentFragment()

	m.Apply(map[string]any{"items": []any{"a", "b"}})
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, v.String())
}
