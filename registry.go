package htmlizer

import (
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/net/html"
)

// Control is returned by a handler's Init to steer the render traversal.
type Control struct {
	// SkipChildren stops the renderer from copying the template children
	// of the bound element. Handlers that produce the element's content
	// themselves (text, html, if, foreach, ...) set it.
	SkipChildren bool

	// IgnoreTill suppresses copying of template nodes until the given
	// template node is reached. Comment blocks use it to skip their literal
	// body.
	IgnoreTill *html.Node

	// AfterChildren runs once the element's children have been rendered.
	AfterChildren func()
}

// Handler implements one binding name. Init runs on first render, Update
// whenever an observable read by the binding changes.
type Handler interface {
	Init(b *Binding) Control
	Update(b *Binding)
}

// SpliceHandler is implemented by handlers that can apply an array splice
// without re-reading the whole array.
type SpliceHandler interface {
	Handler
	Splice(b *Binding, src *ObservableArray, index, removeCount int, items []any)
}

// SortHandler is implemented by handlers that can apply a permutation in
// place. order[i] is the previous position of the item now at i.
type SortHandler interface {
	Handler
	Reorder(b *Binding, src *ObservableArray, order []int)
}

// HandlerFuncs adapts plain functions to Handler. A nil UpdateFunc re-runs
// InitFunc.
type HandlerFuncs struct {
	InitFunc   func(b *Binding) Control
	UpdateFunc func(b *Binding)
}

func (h HandlerFuncs) Init(b *Binding) Control {
	if h.InitFunc == nil {
		return Control{}
	}
	return h.InitFunc(b)
}

func (h HandlerFuncs) Update(b *Binding) {
	switch {
	case h.UpdateFunc != nil:
		h.UpdateFunc(b)
	case h.InitFunc != nil:
		h.InitFunc(b)
	}
}

// Registry maps binding names to handlers. It is safe for concurrent use.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// DefaultRegistry holds the built-in handlers and is used when no
// WithRegistry option is given.
var DefaultRegistry = NewRegistry()

// NewRegistry returns a registry holding the built-in handlers.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	registerBuiltins(r)
	return r
}

// NewEmptyRegistry returns a registry without any handlers.
func NewEmptyRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Unregister removes the handler for name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Lookup returns the handler registered for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered binding names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns the registered name closest to an unknown one, or "".
func (r *Registry) Suggest(name string) string {
	names := r.Names()

	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", 3
	for _, candidate := range names {
		if d := fuzzy.LevenshteinDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
