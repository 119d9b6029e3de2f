package element

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/zjrosen/pagetypes/internal/selector"
)

// Builder errors
var (
	ErrEmptyTypeName   = errors.New("element type name cannot be empty")
	ErrInvalidTypeName = errors.New("element type name must be an identifier")
	ErrNoInfos         = errors.New("context-aware element type needs at least one info")
	ErrSingleInfos     = errors.New("single infos must be a subset of infos")
)

var typeNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Builder provides a fluent API for creating element types.
//
// Sanitizers run in a fixed order: base, overridable, renderable,
// container, context-aware, then custom ones in the order added.
// Parameter contributors follow the same order; CollectParameters sorts
// the result, so their order only breaks ties.
type Builder struct {
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

// NewBuilder creates a builder for the type called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:         name,
		phrases:      make(map[string]string),
		defaultTopic: selector.DefaultTopic,
	}
}

// Phrase sets one display phrase.
func (b *Builder) Phrase(what, text string) *Builder {
	b.phrases[what] = text
	return b
}

// Phrases sets several display phrases.
func (b *Builder) Phrases(p map[string]string) *Builder {
	maps.Copy(b.phrases, p)
	return b
}

// Overridable enables per-user instances, publishing and shadowing.
func (b *Builder) Overridable() *Builder {
	b.caps |= Overridable
	return b
}

// Renderable gives the type a page, URLs and sidebar links.
func (b *Builder) Renderable() *Builder {
	b.caps |= Renderable
	return b
}

// ContextAware makes the type about infos, pinned by default to singleInfos.
func (b *Builder) ContextAware(infos, singleInfos []string) *Builder {
	b.caps |= ContextAware
	b.infos = slices.Clone(infos)
	b.singleInfos = slices.Clone(singleInfos)
	return b
}

// Container lets instances hold child elements.
func (b *Builder) Container() *Builder {
	b.caps |= Container
	return b
}

// DefaultTopic sets the topic of instances without one.
func (b *Builder) DefaultTopic(topic string) *Builder {
	b.defaultTopic = topic
	return b
}

// Builtins sets where builtin records come from.
func (b *Builder) Builtins(src BuiltinSource) *Builder {
	b.builtins = src
	return b
}

// Sanitize appends a custom sanitizer.
func (b *Builder) Sanitize(s Sanitizer) *Builder {
	b.sanitizers = append(b.sanitizers, s)
	return b
}

// Parameters appends a custom parameter contributor.
func (b *Builder) Parameters(c ParameterContributor) *Builder {
	b.parameters = append(b.parameters, c)
	return b
}

// Build creates the type, validating required fields.
func (b *Builder) Build() (*Type, error) {
	if b.name == "" {
		return nil, ErrEmptyTypeName
	}
	if !typeNameRe.MatchString(b.name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTypeName, b.name)
	}
	if b.caps&ContextAware != 0 {
		if len(b.infos) == 0 {
			return nil, ErrNoInfos
		}
		for _, s := range b.singleInfos {
			if !slices.Contains(b.infos, s) {
				return nil, fmt.Errorf("%w: %q", ErrSingleInfos, s)
			}
		}
	}

	t := &Type{
		name:         b.name,
		phrases:      maps.Clone(b.phrases),
		caps:         b.caps,
		defaultTopic: b.defaultTopic,
		infos:        slices.Clone(b.infos),
		singleInfos:  slices.Clone(b.singleInfos),
		builtins:     b.builtins,
	}

	t.sanitizers = append(t.sanitizers, sanitizeBase)
	t.parameters = append(t.parameters, baseParameters)
	if t.Has(Overridable) {
		t.sanitizers = append(t.sanitizers, sanitizeOverridable)
		t.parameters = append(t.parameters, overridableParameters)
	}
	if t.Has(Renderable) {
		topic := t.defaultTopic
		t.sanitizers = append(t.sanitizers, func(r Record) { r.setDefault(KeyTopic, topic) })
		t.parameters = append(t.parameters, renderableParameters)
	}
	if t.Has(Container) {
		t.sanitizers = append(t.sanitizers, sanitizeContainer)
	}
	if t.Has(ContextAware) {
		singles := t.singleInfos
		t.sanitizers = append(t.sanitizers, func(r Record) {
			r.setDefault(KeyContext, map[string]any{})
			r.setDefault(KeySingleInfos, slices.Clone(singles))
		})
		t.parameters = append(t.parameters, contextAwareParameters)
	}
	t.sanitizers = append(t.sanitizers, b.sanitizers...)
	t.parameters = append(t.parameters, b.parameters...)
	return t, nil
}

func sanitizeBase(r Record) {
	r.setDefault(KeyName, "")
	r.setDefault(KeyTitle, "")
	r.setDefault(KeyDescription, "")
}

func sanitizeOverridable(r Record) {
	r.setDefault(KeyOwner, "")
	r.setDefault(KeyPublic, false)
	r.setDefault(KeyHidden, false)
}

func sanitizeContainer(r Record) {
	if _, ok := r[KeyElements].([]any); !ok {
		r[KeyElements] = []any{}
	}
}
