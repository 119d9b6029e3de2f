package selector

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Context is an immutable set of captured selector values together with
// the infos a page is about and the single infos it must be pinned to.
// The zero value is an empty context about nothing.
type Context struct {
	infos       []string
	singleInfos []string
	values      ContextMap
}

// URLVar is one URL variable of a context.
type URLVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewContext builds a context from a raw persisted mapping. Values that are
// not mappings are treated as the single value of a selector named like the
// key, so {"host": "srv1"} becomes {"host": {"host": "srv1"}}.
func NewContext(infos, singleInfos []string, raw map[string]any) (Context, error) {
	return FromValues(infos, singleInfos, sanitize(raw))
}

// FromValues builds a context from already structured values.
func FromValues(infos, singleInfos []string, values ContextMap) (Context, error) {
	for _, s := range singleInfos {
		if !slices.Contains(infos, s) {
			return Context{}, fmt.Errorf("%w: single info %q is not one of %v", ErrInvalidContext, s, infos)
		}
	}
	c := Context{
		infos:       slices.Clone(infos),
		singleInfos: slices.Clone(singleInfos),
		values:      make(ContextMap, len(values)),
	}
	for k, v := range values {
		c.values[k] = maps.Clone(v)
	}
	return c, nil
}

func sanitize(raw map[string]any) ContextMap {
	out := make(ContextMap, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case map[string]any:
			vals := make(Values, len(v))
			for vk, vv := range v {
				vals[vk] = fmt.Sprint(vv)
			}
			out[key] = vals
		case map[string]string:
			out[key] = maps.Clone(v)
		case Values:
			out[key] = maps.Clone(v)
		case nil:
			out[key] = Values{key: ""}
		default:
			out[key] = Values{key: fmt.Sprint(v)}
		}
	}
	return out
}

// Infos returns the infos the context is about.
func (c Context) Infos() []string { return slices.Clone(c.infos) }

// SingleInfos returns the infos that must be pinned to one object.
func (c Context) SingleInfos() []string { return slices.Clone(c.singleInfos) }

// HasInfo reports whether info is one of the context's infos.
func (c Context) HasInfo(info string) bool { return slices.Contains(c.infos, info) }

// IsSingleInfo reports whether info is one of the single infos.
func (c Context) IsSingleInfo(info string) bool { return slices.Contains(c.singleInfos, info) }

// Has reports whether values were captured for the named selector.
func (c Context) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// SelectorValues returns a copy of the values captured for a selector.
func (c Context) SelectorValues(name string) (Values, bool) {
	v, ok := c.values[name]
	return maps.Clone(v), ok
}

// Values returns a deep copy of all captured values.
func (c Context) Values() ContextMap {
	out := make(ContextMap, len(c.values))
	for k, v := range c.values {
		out[k] = maps.Clone(v)
	}
	return out
}

// Update returns a new context with other's values merged over c's.
// Neither c nor other is modified.
func (c Context) Update(other Context) Context {
	merged := c.Values()
	for k, v := range other.values {
		merged[k] = maps.Clone(v)
	}
	return Context{
		infos:       slices.Clone(c.infos),
		singleInfos: slices.Clone(c.singleInfos),
		values:      merged,
	}
}

// With returns a new context with values captured for one selector.
func (c Context) With(name string, values Values) Context {
	merged := c.Values()
	merged[name] = maps.Clone(values)
	return Context{
		infos:       slices.Clone(c.infos),
		singleInfos: slices.Clone(c.singleInfos),
		values:      merged,
	}
}

// Unsatisfied returns the single infos without captured values, in order.
func (c Context) Unsatisfied() []string {
	var missing []string
	for _, info := range c.singleInfos {
		if _, ok := c.values[info]; !ok {
			missing = append(missing, info)
		}
	}
	return missing
}

// SingleInfoContext keeps only the values of single infos.
func (c Context) SingleInfoContext() Context {
	values := make(ContextMap)
	for _, info := range c.singleInfos {
		if v, ok := c.values[info]; ok {
			values[info] = maps.Clone(v)
		}
	}
	return Context{
		infos:       slices.Clone(c.infos),
		singleInfos: slices.Clone(c.singleInfos),
		values:      values,
	}
}

// URLVariables flattens the captured values, sorted by selector then variable.
func (c Context) URLVariables() []URLVar {
	names := slices.Sorted(maps.Keys(c.values))
	var out []URLVar
	for _, name := range names {
		vars := c.values[name]
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, URLVar{Name: k, Value: vars[k]})
		}
	}
	return out
}

// Raw converts the context back to the mapping stored in instances.
func (c Context) Raw() map[string]any {
	out := make(map[string]any, len(c.values))
	for name, vars := range c.values {
		m := make(map[string]any, len(vars))
		for k, v := range vars {
			m[k] = v
		}
		out[name] = m
	}
	return out
}
