package element

import (
	"fmt"
	"maps"
	"slices"
)

// Record is the attribute mapping of an instance as persisted.
type Record map[string]any

// Well-known record keys.
const (
	KeyName        = "name"
	KeyTitle       = "title"
	KeyOwner       = "owner"
	KeyPublic      = "public"
	KeyHidden      = "hidden"
	KeyDescription = "description"
	KeyTopic       = "topic"
	KeyElements    = "elements"
	KeyContext     = "context"
	KeySingleInfos = "single_infos"
	KeyHideButton  = "hidebutton"
)

// Clone returns a deep copy of r. Nested maps and slices are copied so
// that the result shares no mutable state with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case map[string]string:
		return maps.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// String returns the value of key as a string. Missing keys yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value of key as a bool. Missing keys yield false.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Strings returns the value of key as a string slice.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return nil
	}
}

func (r Record) setDefault(key string, value any) {
	if _, ok := r[key]; !ok {
		r[key] = value
	}
}

// Key identifies an instance within its type.
type Key struct {
	Owner string
	Name  string
}

func (k Key) String() string {
	if k.Owner == "" {
		return k.Name
	}
	return k.Owner + "/" + k.Name
}

// Instance is one concrete object of a Type.
type Instance struct {
	typ *Type
	rec Record
}

// NewInstance builds an instance of t from rec, running t's sanitizers.
// rec is copied.
func NewInstance(t *Type, rec Record) *Instance {
	rec = rec.Clone()
	if rec == nil {
		rec = Record{}
	}
	for _, s := range t.sanitizers {
		s(rec)
	}
	return &Instance{typ: t, rec: rec}
}

func (i *Instance) Type() *Type         { return i.typ }
func (i *Instance) Name() string        { return i.rec.String(KeyName) }
func (i *Instance) Title() string       { return i.rec.String(KeyTitle) }
func (i *Instance) Owner() string       { return i.rec.String(KeyOwner) }
func (i *Instance) Description() string { return i.rec.String(KeyDescription) }
func (i *Instance) Key() Key            { return Key{Owner: i.Owner(), Name: i.Name()} }

// IsBuiltin reports whether the instance ships with the product.
func (i *Instance) IsBuiltin() bool { return i.Owner() == "" }

// PublicFlag is the raw public attribute. Whether the instance really is
// public also depends on its owner's permissions, see Policy.IsPublic.
func (i *Instance) PublicFlag() bool { return i.rec.Bool(KeyPublic) }

// IsHidden reports whether the instance is kept out of the sidebar.
func (i *Instance) IsHidden() bool { return i.rec.Bool(KeyHidden) }

// Topic returns the instance topic or the type default.
func (i *Instance) Topic() string {
	if t := i.rec.String(KeyTopic); t != "" {
		return t
	}
	return i.typ.DefaultTopic()
}

// Get returns one attribute.
func (i *Instance) Get(key string) (any, bool) {
	v, ok := i.rec[key]
	return cloneValue(v), ok
}

// Record returns a deep copy of the attributes.
func (i *Instance) Record() Record { return i.rec.Clone() }
