// Package permission is the role based permission provider.
//
// Permissions are declared at runtime by element types and instances and are
// granted to roles. Users hold one or more roles; a user may do something if
// any of their roles grants the permission. Per-role overrides loaded from
// configuration take precedence over the declared defaults.
package permission

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// Builtin role ids.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

// BuiltinRoles lists the roles every installation knows about.
var BuiltinRoles = []string{RoleAdmin, RoleUser, RoleGuest}

// Permission describes one declared permission.
type Permission struct {
	ID           string
	Section      string
	Title        string
	Description  string
	DefaultRoles []string
}

// Section groups permissions for display.
type Section struct {
	Name  string
	Title string
	// Sorted lists the section's permissions by title instead of declaration order.
	Sorted bool
}

// Registry holds declared permissions, role assignments and role overrides.
// It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	perms        map[string]Permission
	order        []string
	sections     map[string]Section
	sectionOrder []string
	userRoles    map[string][]string
	overrides    map[string]map[string]bool // role -> permission -> granted
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		perms:     make(map[string]Permission),
		sections:  make(map[string]Section),
		userRoles: make(map[string][]string),
		overrides: make(map[string]map[string]bool),
	}
}

// sectionOf returns the part of id before the first dot.
func sectionOf(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return ""
}

// DeclareSection registers a section. Re-declaring updates title and sorting.
func (r *Registry) DeclareSection(name, title string, sorted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sections[name]; !ok {
		r.sectionOrder = append(r.sectionOrder, name)
	}
	r.sections[name] = Section{Name: name, Title: title, Sorted: sorted}
}

// Declare registers a permission granted to roles by default.
// It returns false and changes nothing when id is already declared.
func (r *Registry) Declare(id, title, description string, roles []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.perms[id]; ok {
		return false
	}
	r.perms[id] = Permission{
		ID:           id,
		Section:      sectionOf(id),
		Title:        title,
		Description:  description,
		DefaultRoles: slices.Clone(roles),
	}
	r.order = append(r.order, id)
	return true
}

// Exists reports whether id has been declared.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.perms[id]
	return ok
}

// Get returns the declared permission.
func (r *Registry) Get(id string) (Permission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.perms[id]
	return p, ok
}

// SetUserRoles replaces the roles held by user.
func (r *Registry) SetUserRoles(user string, roles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userRoles[user] = slices.Clone(roles)
}

// UserRoles returns the roles held by user.
func (r *Registry) UserRoles(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.userRoles[user])
}

// Users returns every user with a role assignment, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.userRoles))
	for u := range r.userRoles {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Grant overrides the default and grants id to role.
func (r *Registry) Grant(role, id string) {
	r.setOverride(role, id, true)
}

// Revoke overrides the default and denies id to role.
func (r *Registry) Revoke(role, id string) {
	r.setOverride(role, id, false)
}

func (r *Registry) setOverride(role, id string, granted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.overrides[role]
	if !ok {
		m = make(map[string]bool)
		r.overrides[role] = m
	}
	m[id] = granted
}

// RoleMay reports whether role holds id.
func (r *Registry) RoleMay(role, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roleMay(role, id)
}

func (r *Registry) roleMay(role, id string) bool {
	if granted, ok := r.overrides[role][id]; ok {
		return granted
	}
	p, ok := r.perms[id]
	if !ok {
		return false
	}
	return slices.Contains(p.DefaultRoles, role)
}

// May reports whether any of user's roles holds id.
// Undeclared permissions are only granted through an explicit override.
func (r *Registry) May(user, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, role := range r.userRoles[user] {
		if r.roleMay(role, id) {
			return true
		}
	}
	return false
}

// Sections returns the declared sections in declaration order.
func (r *Registry) Sections() []Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Section, 0, len(r.sectionOrder))
	for _, name := range r.sectionOrder {
		out = append(out, r.sections[name])
	}
	return out
}

// List returns the permissions of a section.
func (r *Registry) List(section string) []Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Permission
	for _, id := range r.order {
		if p := r.perms[id]; p.Section == section {
			out = append(out, p)
		}
	}
	if r.sections[section].Sorted {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	}
	return out
}
