package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// TextSelector is active when its first variable is non-empty.
type TextSelector struct {
	Base
}

// NewTextSelector creates a TextSelector.
func NewTextSelector(def Definition) *TextSelector {
	return &TextSelector{Base: NewBase(def)}
}

func (s *TextSelector) IsActive(values Values) bool {
	vars := s.def.Variables
	return len(vars) > 0 && values[vars[0]] != ""
}

func (s *TextSelector) value(values Values) string {
	if len(s.def.Variables) == 0 {
		return ""
	}
	return values[s.def.Variables[0]]
}

// LivestatusTextSelector filters at query time with one column comparison.
type LivestatusTextSelector struct {
	TextSelector
	Column     string
	Expression string // "=", "~~", ">=", ...
}

// NewLivestatusTextSelector creates a selector emitting "Filter: column expression value".
func NewLivestatusTextSelector(def Definition, column, expression string) *LivestatusTextSelector {
	return &LivestatusTextSelector{
		TextSelector: TextSelector{Base: NewBase(def)},
		Column:       column,
		Expression:   expression,
	}
}

// LivestatusHeaders renders the filter line. Newlines in the value are
// stripped so a value cannot inject further headers.
func (s *LivestatusTextSelector) LivestatusHeaders(values Values) string {
	v := strings.NewReplacer("\n", "", "\r", "").Replace(s.value(values))
	return fmt.Sprintf("Filter: %s %s %s\n", s.Column, s.Expression, v)
}

// MatchMode selects how RowSelector compares a column with the value.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchSubstring
	MatchRegex
)

// RowSelector filters already fetched rows. It is used for infos the
// query engine cannot filter, such as business intelligence aggregations.
type RowSelector struct {
	TextSelector
	Column string
	Mode   MatchMode
}

// NewRowSelector creates a post-filtering selector.
func NewRowSelector(def Definition, column string, mode MatchMode) *RowSelector {
	return &RowSelector{
		TextSelector: TextSelector{Base: NewBase(def)},
		Column:       column,
		Mode:         mode,
	}
}

// SelectRows keeps the rows whose column matches, preserving order.
// An invalid regular expression matches nothing.
func (s *RowSelector) SelectRows(rows []Row, values Values) []Row {
	want := s.value(values)
	var re *regexp.Regexp
	if s.Mode == MatchRegex {
		var err error
		if re, err = regexp.Compile(want); err != nil {
			return []Row{}
		}
	}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		raw, ok := row[s.Column]
		if !ok {
			continue
		}
		got := fmt.Sprint(raw)
		var match bool
		switch s.Mode {
		case MatchSubstring:
			match = strings.Contains(strings.ToLower(got), strings.ToLower(want))
		case MatchRegex:
			match = re.MatchString(got)
		default:
			match = got == want
		}
		if match {
			out = append(out, row)
		}
	}
	return out
}
