package selector

import (
	"net/url"
	"slices"
)

// DefaultTopic is used for selectors and pages that do not name a topic.
const DefaultTopic = "Other"

// Selector is a filter control owned by one info.
//
// IsActive, LivestatusHeaders and SelectRows are pure functions of the
// captured values. LivestatusHeaders and SelectRows may assume the
// selector is active.
type Selector interface {
	Name() string
	Title() string
	Description() string
	Info() string
	Topic() string
	Variables() []string
	IsActive(values Values) bool
	LivestatusHeaders(values Values) string
	SelectRows(rows []Row, values Values) []Row
	// HeadingInfo renders the captured values for a page heading.
	HeadingInfo(values Values) string
}

// Definition carries the descriptive fields shared by all selectors.
type Definition struct {
	Name        string
	Title       string
	Description string
	Info        string
	Topic       string
	Variables   []string
}

// Base implements the descriptive half of Selector and no-op filtering.
// Concrete selectors embed it and override what they need.
type Base struct {
	def Definition
}

// NewBase creates a Base from def.
func NewBase(def Definition) Base {
	def.Variables = slices.Clone(def.Variables)
	return Base{def: def}
}

func (b Base) Name() string        { return b.def.Name }
func (b Base) Title() string       { return b.def.Title }
func (b Base) Description() string { return b.def.Description }
func (b Base) Info() string        { return b.def.Info }

// Topic defaults to DefaultTopic.
func (b Base) Topic() string {
	if b.def.Topic == "" {
		return DefaultTopic
	}
	return b.def.Topic
}

func (b Base) Variables() []string { return slices.Clone(b.def.Variables) }

// IsActive reports whether any variable has a value.
func (b Base) IsActive(values Values) bool {
	for _, v := range b.def.Variables {
		if values[v] != "" {
			return true
		}
	}
	return false
}

func (b Base) LivestatusHeaders(Values) string { return "" }

func (b Base) SelectRows(rows []Row, _ Values) []Row { return rows }

// HeadingInfo returns the value of the first variable.
func (b Base) HeadingInfo(values Values) string {
	if len(b.def.Variables) == 0 {
		return ""
	}
	return values[b.def.Variables[0]]
}

// ValuesFromQuery picks the selector's variables out of q.
// ok is false when the selector is not active for q.
func ValuesFromQuery(s Selector, q url.Values) (Values, bool) {
	values := make(Values, len(s.Variables()))
	for _, v := range s.Variables() {
		values[v] = q.Get(v)
	}
	if !s.IsActive(values) {
		return nil, false
	}
	return values, true
}
