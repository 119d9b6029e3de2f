package metrics

import (
	"context"

	"github.com/zjrosen/pagetypes/internal/element"
)

// Persistence counts the reads and writes of a wrapped element.Persistence.
type Persistence struct {
	next element.Persistence
	m    *Metrics
}

var _ element.Persistence = (*Persistence)(nil)

// WrapPersistence returns a counting decorator around next.
func (m *Metrics) WrapPersistence(next element.Persistence) *Persistence {
	return &Persistence{next: next, m: m}
}

func (p *Persistence) ReadUserRecords(ctx context.Context, user, typeName string) (map[string]element.Record, error) {
	recs, err := p.next.ReadUserRecords(ctx, user, typeName)
	p.m.reads.WithLabelValues(typeName, Result(err)).Inc()
	return recs, err
}

func (p *Persistence) WriteUserRecords(ctx context.Context, user, typeName string, records map[string]element.Record) error {
	err := p.next.WriteUserRecords(ctx, user, typeName, records)
	p.m.writes.WithLabelValues(typeName, Result(err)).Inc()
	return err
}

func (p *Persistence) ListKnownUsers(ctx context.Context) ([]string, error) {
	return p.next.ListKnownUsers(ctx)
}
