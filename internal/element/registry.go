package element

import (
	"iter"
	"sync"

	"github.com/zjrosen/pagetypes/internal/log"
)

// Permissions is the permission provider consumed by element types.
type Permissions interface {
	DeclareSection(name, title string, sorted bool)
	Declare(id, title, description string, roles []string) bool
	Exists(id string) bool
	May(user, id string) bool
}

// Registry maps type names to element types.
type Registry struct {
	mu    sync.RWMutex
	perms Permissions
	types map[string]*Type
	order []string
}

// NewRegistry creates an empty registry declaring permissions through perms.
func NewRegistry(perms Permissions) *Registry {
	return &Registry{perms: perms, types: make(map[string]*Type)}
}

// Permissions returns the provider types declare their permissions with.
func (r *Registry) Permissions() Permissions { return r.perms }

// Register stores t, replacing any prior type of the same name, and
// declares its permissions. Re-registration never declares twice.
func (r *Registry) Register(t *Type) {
	r.mu.Lock()
	if _, ok := r.types[t.name]; !ok {
		r.order = append(r.order, t.name)
	}
	r.types[t.name] = t
	r.mu.Unlock()

	t.declarePermissions(r.perms)
	log.Debug(log.CatRegistry, "Registered element type", "type", t.name, "capabilities", t.caps)
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, &NotFoundError{Type: "element type", Name: name}
	}
	return t, nil
}

// All returns the types in registration order.
func (r *Registry) All() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// AllImplementing yields the registered types having every capability in c.
// The sequence is computed anew on each iteration.
func (r *Registry) AllImplementing(c Capability) iter.Seq[*Type] {
	return func(yield func(*Type) bool) {
		for _, t := range r.All() {
			if !t.Has(c) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// HandlerKind identifies a page handler of a renderable type.
type HandlerKind string

const (
	HandlerList           HandlerKind = "list"
	HandlerEdit           HandlerKind = "edit"
	HandlerShow           HandlerKind = "show"
	HandlerAddToContainer HandlerKind = "add_to_container"
)

// PageHandler binds a page path to a handler kind and type.
type PageHandler struct {
	Path string
	Kind HandlerKind
	Type *Type
}

// PageHandlers returns the pages of all renderable types, followed by the
// ajax endpoint for adding elements to containers.
func (r *Registry) PageHandlers() []PageHandler {
	var out []PageHandler
	for t := range r.AllImplementing(Renderable) {
		out = append(out,
			PageHandler{Path: t.ListURL(), Kind: HandlerList, Type: t},
			PageHandler{Path: t.EditPath(), Kind: HandlerEdit, Type: t},
			PageHandler{Path: t.ShowPath(), Kind: HandlerShow, Type: t},
		)
	}
	out = append(out, PageHandler{Path: "ajax_add_element_to_container", Kind: HandlerAddToContainer})
	return out
}
