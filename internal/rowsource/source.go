// Package rowsource serves the monitoring rows pages are rendered from.
package rowsource

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
)

// Source returns all rows of a datasource.
type Source interface {
	Rows(ctx context.Context, datasource string) ([]selector.Row, error)
}

// Fixture is a Source over a static YAML document mapping datasource
// names to row lists.
type Fixture struct {
	rows map[string][]selector.Row
}

var _ Source = (*Fixture)(nil)

// ParseFixture parses a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var rows map[string][]selector.Row
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return &Fixture{rows: rows}, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, &element.ConfigCorruptError{Path: path, Err: err}
	}
	return f, nil
}

// Rows returns the rows of datasource. Unknown datasources are NotFound.
func (f *Fixture) Rows(_ context.Context, datasource string) ([]selector.Row, error) {
	rows, ok := f.rows[datasource]
	if !ok {
		return nil, &element.NotFoundError{Type: "datasource", Name: datasource}
	}
	out := make([]selector.Row, len(rows))
	copy(out, rows)
	return out, nil
}

// Datasources lists the datasources of the fixture, sorted.
func (f *Fixture) Datasources() []string {
	out := make([]string, 0, len(f.rows))
	for name := range f.rows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Query fetches the rows of datasource from src, keeps the ones matching
// the query filters, then applies the row post-filters of c.
func Query(ctx context.Context, src Source, sels *selector.Registry, datasource string, c selector.Context) ([]selector.Row, error) {
	rows, err := src.Rows(ctx, datasource)
	if err != nil {
		return nil, err
	}
	filters, err := ParseFilters(sels.LivestatusFilters(c))
	if err != nil {
		return nil, err
	}
	out := make([]selector.Row, 0, len(rows))
	for _, row := range rows {
		if filters.Match(row) {
			out = append(out, row)
		}
	}
	return sels.SelectRows(c, out), nil
}
