package testutil

import (
	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/permission"
	"github.com/zjrosen/pagetypes/internal/pubsub"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Standard test users.
const (
	Admin = "root"
	Alice = "alice"
	Bob   = "bob"
	Guest = "guest"
)

// Permissions returns a registry with the standard users: root is admin,
// alice and bob are users and guest is a guest.
func Permissions() *permission.Registry {
	p := permission.NewRegistry()
	p.SetUserRoles(Admin, permission.RoleAdmin)
	p.SetUserRoles(Alice, permission.RoleUser)
	p.SetUserRoles(Bob, permission.RoleUser)
	p.SetUserRoles(Guest, permission.RoleGuest)
	return p
}

// Builtins is a static element.BuiltinSource keyed by type and name.
type Builtins map[string]map[string]element.Record

// Builtins implements element.BuiltinSource.
func (b Builtins) Builtins(typeName string) map[string]element.Record {
	return b[typeName]
}

// Env bundles a full set of collaborators for element tests.
type Env struct {
	Perms     *permission.Registry
	Store     *MemoryPersistence
	Builtins  Builtins
	Registry  *element.Registry
	Infos     *selector.InfoRegistry
	Selectors *selector.Registry
	// Changes receives the change events of every session.
	Changes *pubsub.Broker[element.Change]
}

// NewEnv creates collaborators with the default infos and selectors and no
// element types registered.
func NewEnv() *Env {
	perms := Permissions()
	infos := selector.NewInfoRegistry()
	sels := selector.NewRegistry(infos)
	if err := selector.RegisterDefaults(infos, sels); err != nil {
		panic(err)
	}
	return &Env{
		Perms:     perms,
		Store:     NewMemoryPersistence(),
		Builtins:  Builtins{},
		Registry:  element.NewRegistry(perms),
		Infos:     infos,
		Selectors: sels,
		Changes:   pubsub.NewBroker[element.Change](),
	}
}

// Builtin adds a builtin record.
func (e *Env) Builtin(typeName string, rec element.Record) *Env {
	if e.Builtins[typeName] == nil {
		e.Builtins[typeName] = make(map[string]element.Record)
	}
	e.Builtins[typeName][rec.String(element.KeyName)] = rec
	return e
}

// User seeds a persisted record of user.
func (e *Env) User(user, typeName string, rec element.Record) *Env {
	e.Store.Put(user, typeName, rec.String(element.KeyName), rec)
	return e
}

// Deps returns the session dependencies.
func (e *Env) Deps() element.Deps {
	return element.Deps{
		Registry:    e.Registry,
		Infos:       e.Infos,
		Selectors:   e.Selectors,
		Persistence: e.Store,
		Permissions: e.Perms,
		Changes:     e.Changes,
	}
}

// Session opens a session for user.
func (e *Env) Session(user string) *element.Session {
	return element.NewSession(e.Deps(), user)
}
