// Package testutil provides in-memory collaborators and fixtures for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/pagetypes/internal/element"
)

type recordKey struct {
	user     string
	typeName string
}

// MemoryPersistence is an element.Persistence backed by maps.
type MemoryPersistence struct {
	mu      sync.Mutex
	data    map[recordKey]map[string]element.Record
	corrupt map[recordKey]bool
	users   map[string]bool
	writes  int
	failing error
}

// NewMemoryPersistence creates an empty store.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		data:    make(map[recordKey]map[string]element.Record),
		corrupt: make(map[recordKey]bool),
		users:   make(map[string]bool),
	}
}

var _ element.Persistence = (*MemoryPersistence)(nil)

// ReadUserRecords implements element.Persistence.
func (m *MemoryPersistence) ReadUserRecords(_ context.Context, user, typeName string) (map[string]element.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{user, typeName}
	if m.corrupt[key] {
		return nil, &element.ConfigCorruptError{
			User: user, Type: typeName, Path: fmt.Sprintf("memory:%s/%s", user, typeName),
			Err: errors.New("unexpected end of input"),
		}
	}
	recs, ok := m.data[key]
	if !ok {
		return nil, element.ErrNotFound
	}
	return cloneRecords(recs), nil
}

// WriteUserRecords implements element.Persistence.
func (m *MemoryPersistence) WriteUserRecords(_ context.Context, user, typeName string, records map[string]element.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	m.users[user] = true
	m.data[recordKey{user, typeName}] = cloneRecords(records)
	delete(m.corrupt, recordKey{user, typeName})
	m.writes++
	return nil
}

// ListKnownUsers implements element.Persistence.
func (m *MemoryPersistence) ListKnownUsers(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.users))
	for u := range m.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

// Put seeds one record of user.
func (m *MemoryPersistence) Put(user, typeName, name string, rec element.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user] = true
	key := recordKey{user, typeName}
	if m.data[key] == nil {
		m.data[key] = make(map[string]element.Record)
	}
	m.data[key][name] = rec.Clone()
}

// Corrupt makes reads of user's collection fail to parse.
func (m *MemoryPersistence) Corrupt(user, typeName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user] = true
	m.corrupt[recordKey{user, typeName}] = true
}

// FailWrites makes every following write return err. Pass nil to recover.
func (m *MemoryPersistence) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = err
}

// Records returns a copy of user's persisted collection.
func (m *MemoryPersistence) Records(user, typeName string) map[string]element.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRecords(m.data[recordKey{user, typeName}])
}

// Writes returns how many snapshots have been written.
func (m *MemoryPersistence) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func cloneRecords(in map[string]element.Record) map[string]element.Record {
	if in == nil {
		return nil
	}
	out := make(map[string]element.Record, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
