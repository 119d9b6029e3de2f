package selector

import (
	"net/url"
	"strings"
	"sync"

	"github.com/zjrosen/pagetypes/internal/log"
)

// Registry holds selectors by name in registration order.
type Registry struct {
	mu    sync.RWMutex
	infos *InfoRegistry
	sels  map[string]Selector
	order []string
}

// NewRegistry creates a selector registry validating against infos.
func NewRegistry(infos *InfoRegistry) *Registry {
	return &Registry{infos: infos, sels: make(map[string]Selector)}
}

// Infos returns the info registry selectors are validated against.
func (r *Registry) Infos() *InfoRegistry { return r.infos }

// Register stores s, replacing a prior selector of the same name in place.
// The selector's info must already be registered.
func (r *Registry) Register(s Selector) error {
	if !r.infos.Has(s.Info()) {
		return &NotFoundError{Kind: "info", Name: s.Info()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sels[s.Name()]; !ok {
		r.order = append(r.order, s.Name())
	}
	r.sels[s.Name()] = s
	log.Debug(log.CatRegistry, "Registered selector", "name", s.Name(), "info", s.Info())
	return nil
}

// Lookup returns the selector registered under name.
func (r *Registry) Lookup(name string) (Selector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sels[name]
	if !ok {
		return nil, &NotFoundError{Kind: "selector", Name: name}
	}
	return s, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// All returns the selectors in registration order.
func (r *Registry) All() []Selector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Selector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sels[name])
	}
	return out
}

// SelectorsByTopic groups the selectors relevant for c by topic.
// A selector is relevant when its info is one of c's infos. For infos
// pinned as single infos only the identity selector, the one named like
// the info, is offered.
func (r *Registry) SelectorsByTopic(c Context) []TopicGroup[Selector] {
	var relevant []Selector
	for _, s := range r.All() {
		if !c.HasInfo(s.Info()) {
			continue
		}
		if c.IsSingleInfo(s.Info()) && s.Name() != s.Info() {
			continue
		}
		relevant = append(relevant, s)
	}
	return GroupByTopic(relevant, Selector.Topic)
}

// ContextFromQuery captures the active selectors of infos from URL variables.
func (r *Registry) ContextFromQuery(infos, singleInfos []string, q url.Values) (Context, error) {
	values := make(ContextMap)
	scope := Context{infos: infos}
	for _, s := range r.All() {
		if !scope.HasInfo(s.Info()) {
			continue
		}
		if v, ok := ValuesFromQuery(s, q); ok {
			values[s.Name()] = v
		}
	}
	return FromValues(infos, singleInfos, values)
}

// LivestatusFilters concatenates the query fragments of c's active
// selectors in registration order. Context entries naming no registered
// selector are skipped.
func (r *Registry) LivestatusFilters(c Context) string {
	var (
		headers string
		active  []string
	)
	for _, s := range r.All() {
		values, ok := c.values[s.Name()]
		if !ok || !s.IsActive(values) {
			continue
		}
		headers += s.LivestatusHeaders(values)
		active = append(active, s.Name())
	}
	if len(active) > 0 {
		log.Debug(log.CatSelector, "Built query filters", "selectors", strings.Join(active, ","))
	}
	return headers
}

// SelectRows threads rows through the post-filter of every active selector
// of c in registration order.
func (r *Registry) SelectRows(c Context, rows []Row) []Row {
	for _, s := range r.All() {
		values, ok := c.values[s.Name()]
		if !ok || !s.IsActive(values) {
			continue
		}
		rows = s.SelectRows(rows, values)
	}
	return rows
}

// PageHeadingPrefix joins the heading infos of c's single infos with " / ".
func (r *Registry) PageHeadingPrefix(c Context) string {
	var prefix string
	for i, name := range c.singleInfos {
		var part string
		if s, err := r.Lookup(name); err == nil {
			part = s.HeadingInfo(c.values[name])
		}
		if i > 0 {
			prefix += " / "
		}
		prefix += part
	}
	return prefix
}
