package element

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/zjrosen/pagetypes/internal/permission"
)

var (
	allRoles    = permission.BuiltinRoles
	editorRoles = []string{permission.RoleAdmin, permission.RoleUser}
	adminRoles  = []string{permission.RoleAdmin}
)

// Capability is one aspect an element type may implement.
type Capability uint8

const (
	// Overridable types have per-user instances that shadow builtins.
	Overridable Capability = 1 << iota
	// Renderable types have a page and appear in the sidebar.
	Renderable
	// ContextAware types are about infos and are filtered by a context.
	ContextAware
	// Container types hold an ordered list of child elements.
	Container
)

func (c Capability) String() string {
	var parts []string
	for _, entry := range []struct {
		c    Capability
		name string
	}{{Overridable, "overridable"}, {Renderable, "renderable"}, {ContextAware, "context-aware"}, {Container, "container"}} {
		if c&entry.c != 0 {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Sanitizer fills defaults into a freshly loaded record.
type Sanitizer func(Record)

// BuiltinSource supplies the builtin records of a type keyed by name.
type BuiltinSource interface {
	Builtins(typeName string) map[string]Record
}

// BuiltinFunc adapts a function to BuiltinSource.
type BuiltinFunc func(typeName string) map[string]Record

func (f BuiltinFunc) Builtins(typeName string) map[string]Record { return f(typeName) }

// Type describes a family of elements. It is immutable once built.
type Type struct {
	name         string
	phrases      map[string]string
	caps         Capability
	defaultTopic string
	infos        []string
	singleInfos  []string
	sanitizers   []Sanitizer
	parameters   []ParameterContributor
	builtins     BuiltinSource
}

// Name returns the unique type name, e.g. "view".
func (t *Type) Name() string { return t.name }

// Phrase returns a display phrase such as "title", "title_plural", "add_to",
// "create", "edit" or "clone".
func (t *Type) Phrase(what string) string {
	if p, ok := t.phrases[what]; ok {
		return p
	}
	return fmt.Sprintf("%s: %s", what, t.name)
}

// Has reports whether t implements c.
func (t *Type) Has(c Capability) bool { return t.caps&c == c }

// Capabilities returns all capabilities of t.
func (t *Type) Capabilities() Capability { return t.caps }

// DefaultTopic is used for instances that do not name a topic.
func (t *Type) DefaultTopic() string { return t.defaultTopic }

// Infos returns the infos a context-aware type is about.
func (t *Type) Infos() []string { return slices.Clone(t.infos) }

// SingleInfos returns the default single infos of a context-aware type.
func (t *Type) SingleInfos() []string { return slices.Clone(t.singleInfos) }

// Builtins returns fresh copies of the builtin records.
func (t *Type) Builtins() map[string]Record {
	if t.builtins == nil {
		return nil
	}
	src := t.builtins.Builtins(t.name)
	out := make(map[string]Record, len(src))
	for name, rec := range src {
		out[name] = rec.Clone()
	}
	return out
}

// Permission ids of overridable types.
func (t *Type) permEdit() string          { return "general.edit_" + t.name }
func (t *Type) permPublish() string       { return "general.publish_" + t.name }
func (t *Type) permSeeUser() string       { return "general.see_user_" + t.name }
func (t *Type) permForce() string         { return "general.force_" + t.name }
func (t *Type) permDeleteForeign() string { return "general.delete_foreign_" + t.name }

// OverridingPermission returns the id of "general.<how>_<type>".
func (t *Type) OverridingPermission(how string) string {
	return fmt.Sprintf("general.%s_%s", how, t.name)
}

// InstancePermission returns the id guarding one public instance.
func (t *Type) InstancePermission(name string) string {
	return t.name + "." + name
}

// ListURL is the page listing all instances.
func (t *Type) ListURL() string { return t.name + "s" }

// CreateURL is the edit page in create mode.
func (t *Type) CreateURL() string { return "edit_" + t.name + "?mode=create" }

// EditPath is the edit page without parameters.
func (t *Type) EditPath() string { return "edit_" + t.name }

// ShowPath is the page rendering one instance.
func (t *Type) ShowPath() string { return t.name }

func makeURI(path string, vars ...[2]string) string {
	if len(vars) == 0 {
		return path
	}
	q := make([]string, 0, len(vars))
	for _, v := range vars {
		q = append(q, url.QueryEscape(v[0])+"="+url.QueryEscape(v[1]))
	}
	return path + "?" + strings.Join(q, "&")
}

func (t *Type) declarePermissions(p Permissions) {
	p.DeclareSection(t.name, t.Phrase("title_plural"), true)
	if !t.Has(Overridable) {
		return
	}
	plural := t.Phrase("title_plural")
	decl := []struct {
		id, title, desc string
		roles           []string
	}{
		{t.permEdit(), "Customize " + plural + " and use them",
			"Allows to create own " + plural + ", customize builtin " + plural + " and use them.", editorRoles},
		{t.permPublish(), "Publish " + plural,
			"Make " + plural + " visible and usable for other users.", editorRoles},
		{t.permSeeUser(), "See user " + plural,
			"Is needed for seeing " + plural + " that other users have created.", allRoles},
		{t.permForce(), "Modify builtin " + plural,
			"Make own published " + plural + " override builtin " + plural + " for all users.", adminRoles},
		{t.permDeleteForeign(), "Delete foreign " + plural,
			"Allows to delete " + plural + " created by other users.", adminRoles},
	}
	for _, d := range decl {
		if !p.Exists(d.id) {
			p.Declare(d.id, d.title, d.desc, d.roles)
		}
	}
}
