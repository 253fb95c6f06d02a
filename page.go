package htmlizer

import (
	"sync"

	"golang.org/x/net/html"

	"github.com/livefir/htmlizer/internal/dom"
)

// Subscribable is implemented by Observable and ObservableArray.
type Subscribable interface {
	Subscribe(fn func(any)) (unsubscribe func())
}

// Page owns a root View rendered into a fragment and serves it to live
// clients. Observables are single-threaded; all writes to the data behind a
// Page must go through Update so they are serialized with rendering.
type Page struct {
	view *View
	root *html.Node
	cfg  *Config

	mu      sync.Mutex
	dirty   bool
	version int
	unsubs  []func()

	conns   map[*connection]struct{}
	connsMu sync.RWMutex
}

// NewPage renders t against data.
func NewPage(t *Template, data any) *Page {
	view := NewView(t, data, nil, nil)
	return &Page{
		view:  view,
		root:  view.ToDocumentFragment(),
		cfg:   t.cfg,
		conns: make(map[*connection]struct{}),
	}
}

// View returns the root View.
func (p *Page) View() *View {
	return p.view
}

// Watch marks the page dirty whenever one of the given values changes, so
// the next Update pushes fresh markup.
func (p *Page) Watch(values ...Subscribable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range values {
		p.unsubs = append(p.unsubs, v.Subscribe(func(any) { p.dirty = true }))
	}
}

// HTML serializes the current page content, minified when the template was
// compiled with Minify set.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render()
}

// Version counts the updates that changed a watched value.
func (p *Page) Version() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// Update runs fn with exclusive access to the page data. If fn changed a
// watched value, connected clients receive the new markup. It reports
// whether anything was pushed.
func (p *Page) Update(fn func()) (bool, error) {
	version, content, changed, err := p.apply(fn)
	if err != nil || !changed {
		return false, err
	}
	p.broadcast(version, content)
	return true, nil
}

// apply runs fn under the page lock and renders if it changed anything.
func (p *Page) apply(fn func()) (version int, content string, changed bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
	if !p.dirty {
		return 0, "", false, nil
	}
	p.dirty = false
	p.version++
	content, err = p.render()
	return p.version, content, true, err
}

// Close stops watching and retires the root View.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil
	p.view.Retire()
}

func (p *Page) render() (string, error) {
	content := dom.FragmentString(p.root)
	if p.cfg.Minify {
		return minifyHTML(content)
	}
	return content, nil
}
