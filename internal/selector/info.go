package selector

import (
	"fmt"
	"sync"
)

// Row is one result row of the row source, keyed by column name.
type Row map[string]any

// Values holds the URL variables captured by one selector.
type Values map[string]string

// ContextMap maps selector names to their captured values.
type ContextMap map[string]Values

// RowExtractor turns a row into the partial context identifying it.
type RowExtractor func(Row) ContextMap

// Info describes a domain concept.
type Info struct {
	Name        string
	Title       string
	TitlePlural string
	// KeyColumns identify one row of this info, in order.
	KeyColumns []string
	// FromRow overrides the default extraction, which maps the identity
	// selector (named like the info) to the first key column.
	FromRow RowExtractor
}

// ContextFromRow extracts the partial context for this info from row.
func (i *Info) ContextFromRow(row Row) (ContextMap, error) {
	if len(i.KeyColumns) == 0 {
		return nil, &NotFoundError{Kind: "key column", Name: i.Name}
	}
	for _, col := range i.KeyColumns {
		if _, ok := row[col]; !ok {
			return nil, &NotFoundError{Kind: "key column", Name: col}
		}
	}
	if i.FromRow != nil {
		return i.FromRow(row), nil
	}
	return ContextMap{i.Name: {i.Name: fmt.Sprint(row[i.KeyColumns[0]])}}, nil
}

// InfoRegistry holds infos by name, remembering registration order.
type InfoRegistry struct {
	mu    sync.RWMutex
	infos map[string]*Info
	order []string
}

// NewInfoRegistry creates an empty registry.
func NewInfoRegistry() *InfoRegistry {
	return &InfoRegistry{infos: make(map[string]*Info)}
}

// Register stores info, replacing any prior info of the same name.
func (r *InfoRegistry) Register(info *Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.infos[info.Name]; !ok {
		r.order = append(r.order, info.Name)
	}
	r.infos[info.Name] = info
}

// Lookup returns the info registered under name.
func (r *InfoRegistry) Lookup(name string) (*Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[name]
	if !ok {
		return nil, &NotFoundError{Kind: "info", Name: name}
	}
	return info, nil
}

// Has reports whether name is registered.
func (r *InfoRegistry) Has(name string) bool {
	_, err := r.Lookup(name)
	return err == nil
}

// All returns the infos in registration order.
func (r *InfoRegistry) All() []*Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.infos[name])
	}
	return out
}

// KeyColumns returns the key columns of the named info.
func (r *InfoRegistry) KeyColumns(name string) ([]string, error) {
	info, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.KeyColumns, nil
}

// ContextFromRow extracts the partial context of the named info from row.
func (r *InfoRegistry) ContextFromRow(name string, row Row) (ContextMap, error) {
	info, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return info.ContextFromRow(row)
}
