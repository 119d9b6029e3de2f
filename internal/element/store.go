package element

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/permission"
)

// Persistence stores per-user record collections.
//
// ReadUserRecords returns ErrNotFound when the user has no collection for
// the type and a *ConfigCorruptError when it cannot be parsed.
// WriteUserRecords replaces the collection as a whole.
type Persistence interface {
	ReadUserRecords(ctx context.Context, user, typeName string) (map[string]Record, error)
	WriteUserRecords(ctx context.Context, user, typeName string, records map[string]Record) error
	ListKnownUsers(ctx context.Context) ([]string, error)
}

// State is the lifecycle state of a Store.
type State int

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Store holds the instances of one type keyed by (owner, name).
type Store struct {
	typ     *Type
	persist Persistence
	perms   Permissions

	mu        sync.RWMutex
	state     State
	instances map[Key]*Instance
}

// NewStore creates an unloaded store for t.
func NewStore(t *Type, persist Persistence, perms Permissions) *Store {
	return &Store{
		typ:       t,
		persist:   persist,
		perms:     perms,
		instances: make(map[Key]*Instance),
	}
}

// Type returns the element type of the store.
func (s *Store) Type() *Type { return s.typ }

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load clears the store and repopulates it from the builtin records and
// every known user's persisted collection. A corrupt collection aborts the
// load and leaves the store empty and unloaded. Afterwards a permission is
// declared for every public instance.
func (s *Store) Load(ctx context.Context) error {
	instances := make(map[Key]*Instance)

	for name, rec := range s.typ.Builtins() {
		rec[KeyOwner] = ""
		rec[KeyPublic] = true
		rec[KeyName] = name
		inst := NewInstance(s.typ, rec)
		instances[inst.Key()] = inst
	}

	users, err := s.persist.ListKnownUsers(ctx)
	if err != nil {
		s.reset()
		return fmt.Errorf("listing users: %w", err)
	}
	for _, user := range users {
		records, err := s.persist.ReadUserRecords(ctx, user, s.typ.name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			s.reset()
			var corrupt *ConfigCorruptError
			if errors.As(err, &corrupt) {
				log.ErrorErr(log.CatStore, "Corrupt user collection", corrupt.Err,
					"user", corrupt.User, "type", corrupt.Type, "path", corrupt.Path)
			}
			return fmt.Errorf("loading %ss of %s: %w", s.typ.name, user, err)
		}
		for name, rec := range records {
			if rec == nil {
				rec = Record{}
			}
			rec[KeyOwner] = user
			rec[KeyName] = name
			inst := NewInstance(s.typ, rec)
			instances[inst.Key()] = inst
		}
	}

	s.mu.Lock()
	s.instances = instances
	s.state = Loaded
	s.mu.Unlock()

	s.declareInstancePermissions()
	log.Debug(log.CatStore, "Loaded instances", "type", s.typ.name, "count", len(instances), "users", len(users))
	return nil
}

func (s *Store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = make(map[Key]*Instance)
	s.state = Unloaded
}

func (s *Store) declareInstancePermissions() {
	if !s.typ.Has(Overridable) {
		return
	}
	policy := Policy{perms: s.perms}
	for _, inst := range s.All() {
		if !policy.IsPublic(inst) {
			continue
		}
		id := s.typ.InstancePermission(inst.Name())
		if !s.perms.Exists(id) {
			s.perms.Declare(id, inst.Title(), inst.Description(), permission.BuiltinRoles)
		}
	}
}

// Add stores inst under its key, replacing an existing instance.
func (s *Store) Add(inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.Key()] = inst
}

// Remove deletes the instance under key.
func (s *Store) Remove(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[key]; !ok {
		return &NotFoundError{Type: s.typ.name, Owner: key.Owner, Name: key.Name}
	}
	delete(s.instances, key)
	return nil
}

// Get returns the instance under key.
func (s *Store) Get(key Key) (*Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[key]
	if !ok {
		return nil, &NotFoundError{Type: s.typ.name, Owner: key.Owner, Name: key.Name}
	}
	return inst, nil
}

// All returns every instance ordered by owner, then name.
func (s *Store) All() []*Instance {
	s.mu.RLock()
	out := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key(), out[j].Key()
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Name < b.Name
	})
	return out
}

// Clear drops every instance and returns the store to Unloaded.
func (s *Store) Clear() { s.reset() }

// OwnedBy returns the records of owner keyed by name.
func (s *Store) OwnedBy(owner string) map[string]Record {
	out := make(map[string]Record)
	for _, inst := range s.All() {
		if inst.Owner() == owner {
			out[inst.Name()] = inst.Record()
		}
	}
	return out
}

// Save writes owner's instances as a complete snapshot, replacing the
// previously persisted collection.
func (s *Store) Save(ctx context.Context, owner string) error {
	if owner == "" {
		return &UnauthorizedError{Op: "save builtin", Type: s.typ.name}
	}
	records := s.OwnedBy(owner)
	if err := s.persist.WriteUserRecords(ctx, owner, s.typ.name, records); err != nil {
		return fmt.Errorf("saving %ss of %s: %w", s.typ.name, owner, err)
	}
	log.Debug(log.CatStore, "Saved instances", "type", s.typ.name, "owner", owner, "count", len(records))
	return nil
}
