package element

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zjrosen/pagetypes/internal/pubsub"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Deps are the process-wide registries and collaborators a session uses.
type Deps struct {
	Registry    *Registry
	Infos       *selector.InfoRegistry
	Selectors   *selector.Registry
	Persistence Persistence
	Permissions Permissions
	// Changes receives an event for every saved instance change. Optional.
	Changes pubsub.Publisher[Change]
}

// Session serves one request of one user. Each type's store is loaded on
// first use and reused for the rest of the session.
type Session struct {
	deps    Deps
	user    string
	engines map[string]*Engine
}

// NewSession creates a session for user.
func NewSession(deps Deps, user string) *Session {
	return &Session{deps: deps, user: user, engines: make(map[string]*Engine)}
}

// User returns the acting user.
func (s *Session) User() string { return s.user }

// Deps returns the collaborators of the session.
func (s *Session) Deps() Deps { return s.deps }

// Policy returns the permission policy of the acting user.
func (s *Session) Policy() Policy { return NewPolicy(s.deps.Permissions, s.user) }

// Engine returns the loaded engine of the named type.
func (s *Session) Engine(ctx context.Context, typeName string) (*Engine, error) {
	if e, ok := s.engines[typeName]; ok {
		return e, nil
	}
	t, err := s.deps.Registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	e, err := Open(ctx, t, s.deps.Persistence, s.deps.Permissions, s.user)
	if err != nil {
		return nil, err
	}
	if s.deps.Changes != nil {
		e.PublishTo(s.deps.Changes)
	}
	s.engines[typeName] = e
	return e, nil
}

// GetElementByTypeAndName resolves name within the named type.
func (s *Session) GetElementByTypeAndName(ctx context.Context, typeName, name string) (*Instance, error) {
	e, err := s.Engine(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return e.GetByName(name)
}

// GlobalPageLinksByTopic collects the sidebar links of every renderable
// type grouped by topic in topic priority order.
func (s *Session) GlobalPageLinksByTopic(ctx context.Context) ([]selector.TopicGroup[PageLink], error) {
	var links []PageLink
	for t := range s.deps.Registry.AllImplementing(Renderable) {
		e, err := s.Engine(ctx, t.name)
		if err != nil {
			return nil, err
		}
		links = append(links, e.GlobalPageLinks()...)
	}
	return selector.GroupByTopic(links, func(l PageLink) string { return l.Topic }), nil
}

// ContextPageLinksByTopic collects links to pages about the object c is
// pinned to, leaving out currentURL.
func (s *Session) ContextPageLinksByTopic(ctx context.Context, c selector.Context, currentURL string) ([]selector.TopicGroup[PageLink], error) {
	var links []PageLink
	for t := range s.deps.Registry.AllImplementing(ContextAware | Renderable) {
		e, err := s.Engine(ctx, t.name)
		if err != nil {
			return nil, err
		}
		for _, l := range e.ContextPageLinks(c) {
			if l.URL != currentURL {
				links = append(links, l)
			}
		}
	}
	return selector.GroupByTopic(links, func(l PageLink) string { return l.Topic }), nil
}

// URLToPageForRow links to the named page pinned to the object of row.
func (s *Session) URLToPageForRow(ctx context.Context, typeName, name string, row selector.Row) (string, error) {
	inst, err := s.GetElementByTypeAndName(ctx, typeName, name)
	if err != nil {
		return "", err
	}
	if !inst.typ.Has(ContextAware) {
		return "", fmt.Errorf("%w: %s is not context aware", ErrInvalid, typeName)
	}
	c, err := inst.ContextFromRow(s.deps.Infos, row)
	if err != nil {
		return "", err
	}
	return inst.URLForContext(c), nil
}

// RenderContext is everything a context-aware page needs to render.
type RenderContext struct {
	Instance      *Instance
	Context       selector.Context
	Filters       string
	HeadingPrefix string
	Selectors     []selector.TopicGroup[selector.Selector]
}

// PrepareRender resolves the named context-aware page and builds its inner
// context from the URL variables in q.
func (s *Session) PrepareRender(ctx context.Context, typeName, name string, q url.Values) (*RenderContext, error) {
	inst, err := s.GetElementByTypeAndName(ctx, typeName, name)
	if err != nil {
		return nil, err
	}
	rc := &RenderContext{Instance: inst}
	if !inst.typ.Has(ContextAware) {
		return rc, nil
	}
	external, err := inst.ContextFromQuery(s.deps.Selectors, q)
	if err != nil {
		return nil, err
	}
	c, err := inst.BuildInnerContext(external, s.deps.Infos)
	if err != nil {
		return nil, err
	}
	rc.Context = c
	rc.Filters = s.deps.Selectors.LivestatusFilters(c)
	rc.HeadingPrefix = s.deps.Selectors.PageHeadingPrefix(c)
	rc.Selectors = s.deps.Selectors.SelectorsByTopic(c)
	return rc, nil
}

// AddToTarget is one container offered by the add-to popup.
type AddToTarget struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// AddToEntry lists the containers of one type a new element can go to.
type AddToEntry struct {
	Type    string        `json:"type"`
	Phrase  string        `json:"phrase"`
	Targets []AddToTarget `json:"targets"`
}

// AddToPopup lists, per container type, the visible containers.
func (s *Session) AddToPopup(ctx context.Context) ([]AddToEntry, error) {
	var out []AddToEntry
	for t := range s.deps.Registry.AllImplementing(Container | Overridable) {
		e, err := s.Engine(ctx, t.name)
		if err != nil {
			return nil, err
		}
		pages := e.Pages()
		if len(pages) == 0 {
			continue
		}
		entry := AddToEntry{Type: t.name, Phrase: t.Phrase("add_to")}
		for _, p := range pages {
			entry.Targets = append(entry.Targets, AddToTarget{Name: p.Name(), Title: p.Title()})
		}
		out = append(out, entry)
	}
	return out, nil
}

// AddElementToContainer appends createInfo, describing an element of
// elementType, to the named container. Containers of other users are
// cloned first.
func (s *Session) AddElementToContainer(ctx context.Context, containerType, containerName, elementType string, createInfo Record) (ContainerChange, error) {
	e, err := s.Engine(ctx, containerType)
	if err != nil {
		return ContainerChange{}, err
	}
	el := createInfo.Clone()
	if el == nil {
		el = Record{}
	}
	if elementType != "" {
		el.setDefault("type", elementType)
	}
	return e.AddElement(ctx, containerName, el)
}
