package element

import (
	"context"
	"fmt"
	"sort"

	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// Engine resolves and mutates the instances of one type on behalf of one
// user. It works on a store loaded for the current request.
type Engine struct {
	typ     *Type
	store   *Store
	policy  Policy
	changes pubsub.Publisher[Change]
}

// NewEngine creates an engine over a loaded store.
func NewEngine(store *Store, perms Permissions, user string) *Engine {
	return &Engine{typ: store.typ, store: store, policy: NewPolicy(perms, user)}
}

// Open creates a store for t, loads it and returns an engine for user.
func Open(ctx context.Context, t *Type, persist Persistence, perms Permissions, user string) (*Engine, error) {
	store := NewStore(t, persist, perms)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return NewEngine(store, perms, user), nil
}

func (e *Engine) Type() *Type    { return e.typ }
func (e *Engine) Store() *Store  { return e.store }
func (e *Engine) Policy() Policy { return e.policy }
func (e *Engine) User() string   { return e.policy.user }

func (e *Engine) mayEdit() bool { return e.policy.HasOverriding(e.typ, "edit") }

// GetByName returns the instance named name that wins for the acting user:
// mine, then forced, then builtin, then foreign.
func (e *Engine) GetByName(name string) (*Instance, error) {
	var mine, forced, builtin, foreign *Instance
	mayEdit := e.mayEdit()
	for _, inst := range e.store.All() {
		if inst.Name() != name {
			continue
		}
		switch {
		case e.policy.IsMine(inst) && mayEdit:
			mine = inst
		case e.policy.IsPublic(inst) && e.policy.MaySee(inst):
			switch {
			case e.policy.IsPublicForced(inst):
				forced = inst
			case inst.IsBuiltin():
				builtin = inst
			default:
				foreign = inst
			}
		}
	}
	for _, inst := range []*Instance{mine, forced, builtin, foreign} {
		if inst != nil {
			log.Debug(log.CatResolve, "Resolved instance", "type", e.typ.name, "name", name, "owner", inst.Owner(), "user", e.User())
			return inst, nil
		}
	}
	return nil, &NotFoundError{Type: e.typ.name, Name: name}
}

// Pages returns every instance visible to the acting user, one per name,
// sorted by title and then name. Later passes replace earlier ones of the
// same name: builtin, any public, forced public, mine.
func (e *Engine) Pages() []*Instance {
	all := e.store.All()
	pages := make(map[string]*Instance)
	for _, inst := range all {
		if inst.IsBuiltin() && e.policy.IsPublic(inst) && e.policy.MaySee(inst) {
			pages[inst.Name()] = inst
		}
	}
	for _, inst := range all {
		if e.policy.IsPublic(inst) && e.policy.MaySee(inst) {
			pages[inst.Name()] = inst
		}
	}
	for _, inst := range all {
		if e.policy.IsPublicForced(inst) && e.policy.MaySee(inst) {
			pages[inst.Name()] = inst
		}
	}
	if e.mayEdit() {
		for _, inst := range all {
			if e.policy.IsMine(inst) {
				pages[inst.Name()] = inst
			}
		}
	}

	out := make([]*Instance, 0, len(pages))
	for _, inst := range pages {
		out = append(out, inst)
	}
	SortByTitle(out)
	return out
}

// SortByTitle orders instances by title, then name.
func SortByTitle(instances []*Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if a.Title() != b.Title() {
			return a.Title() < b.Title()
		}
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		return a.Owner() < b.Owner()
	})
}

// DefaultName returns the first "<type>_<n>" not used by any instance.
func (e *Engine) DefaultName() string {
	used := make(map[string]struct{})
	for _, inst := range e.store.All() {
		used[inst.Name()] = struct{}{}
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d", e.typ.name, n)
		if _, taken := used[name]; !taken {
			return name
		}
	}
}

// FindMine returns the acting user's own instance named name.
func (e *Engine) FindMine(name string) (*Instance, bool) {
	inst, err := e.store.Get(Key{Owner: e.User(), Name: name})
	if err != nil || inst.IsBuiltin() {
		return nil, false
	}
	return inst, true
}

// Add stores inst. The caller is responsible for saving its owner.
func (e *Engine) Add(inst *Instance) { e.store.Add(inst) }

// Save persists owner's instances of the type as a full snapshot.
func (e *Engine) Save(ctx context.Context, owner string) error {
	return e.store.Save(ctx, owner)
}

// Clone copies inst into the acting user's ownership and adds the copy to
// the store. The copy is not persisted until saved.
func (e *Engine) Clone(inst *Instance) *Instance {
	clone := e.copyForUser(inst)
	e.store.Add(clone)
	return clone
}

// copyForUser returns a detached copy of inst owned by the acting user.
func (e *Engine) copyForUser(inst *Instance) *Instance {
	rec := inst.Record()
	rec[KeyOwner] = e.User()
	log.Debug(log.CatResolve, "Cloned instance", "type", e.typ.name, "name", inst.Name(), "from", inst.Owner(), "to", e.User())
	return NewInstance(e.typ, rec)
}

// Delete removes owner's instance named name and saves owner's collection.
// Builtins can never be deleted; foreign instances need delete_foreign.
func (e *Engine) Delete(ctx context.Context, owner, name string) error {
	if owner == "" {
		return &UnauthorizedError{Op: "delete builtin", Type: e.typ.Phrase("title_plural")}
	}
	inst, err := e.store.Get(Key{Owner: owner, Name: name})
	if err != nil {
		return err
	}
	if !e.policy.MayDelete(inst) {
		return &UnauthorizedError{Op: "delete_foreign", Type: e.typ.Phrase("title_plural")}
	}
	if err := e.store.Remove(inst.Key()); err != nil {
		return err
	}
	if err := e.store.Save(ctx, owner); err != nil {
		e.store.Add(inst)
		return err
	}
	log.Info(log.CatResolve, "Deleted instance", "type", e.typ.name, "owner", owner, "name", name, "by", e.User())
	e.notify(pubsub.DeletedEvent, owner, name)
	return nil
}

// ParameterEnv returns the environment for collecting parameters as the
// acting user.
func (e *Engine) ParameterEnv() ParameterEnv {
	return ParameterEnv{
		Type:          e.typ,
		HasOverriding: func(how string) bool { return e.policy.HasOverriding(e.typ, how) },
	}
}
