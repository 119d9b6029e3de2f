package rowsource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Filter is one parsed "Filter: column operator value" header.
type Filter struct {
	Column   string
	Operator string
	Value    string

	re *regexp.Regexp
}

// Filters are combined with AND.
type Filters []Filter

var operators = map[string]bool{"=": true, "!=": true, "=~": true, "~": true, "~~": true, ">=": true}

// ParseFilters parses the query fragment produced by the selectors.
// Blank lines are ignored.
func ParseFilters(headers string) (Filters, error) {
	var out Filters
	for _, line := range strings.Split(headers, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		expr, ok := strings.CutPrefix(line, "Filter: ")
		if !ok {
			return nil, fmt.Errorf("%w: unsupported query header %q", element.ErrInvalid, line)
		}
		parts := strings.SplitN(expr, " ", 3)
		if len(parts) < 2 || !operators[parts[1]] {
			return nil, fmt.Errorf("%w: malformed filter %q", element.ErrInvalid, line)
		}
		f := Filter{Column: parts[0], Operator: parts[1]}
		if len(parts) == 3 {
			f.Value = parts[2]
		}
		switch f.Operator {
		case "~":
			f.re, _ = regexp.Compile(f.Value)
		case "~~":
			f.re, _ = regexp.Compile("(?i)" + f.Value)
		}
		out = append(out, f)
	}
	return out, nil
}

// Match reports whether row satisfies every filter.
func (fs Filters) Match(row selector.Row) bool {
	for _, f := range fs {
		if !f.Match(row) {
			return false
		}
	}
	return true
}

// Match reports whether row satisfies f. List columns match ">=" when
// they contain the value. A regular expression that does not compile
// matches nothing.
func (f Filter) Match(row selector.Row) bool {
	raw, ok := row[f.Column]
	if !ok {
		return f.Operator == "!="
	}
	if list, isList := raw.([]any); isList {
		if f.Operator != ">=" {
			return false
		}
		for _, e := range list {
			if fmt.Sprint(e) == f.Value {
				return true
			}
		}
		return false
	}

	got := fmt.Sprint(raw)
	switch f.Operator {
	case "=":
		return got == f.Value
	case "!=":
		return got != f.Value
	case "=~":
		return strings.EqualFold(got, f.Value)
	case "~", "~~":
		return f.re != nil && f.re.MatchString(got)
	case ">=":
		return got >= f.Value
	}
	return false
}
