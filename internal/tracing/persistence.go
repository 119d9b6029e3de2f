package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pagetypes/internal/element"
)

// Persistence wraps an element.Persistence with one span per call.
type Persistence struct {
	next   element.Persistence
	tracer trace.Tracer
}

var _ element.Persistence = (*Persistence)(nil)

// WrapPersistence returns next unchanged when tracer is nil.
func WrapPersistence(next element.Persistence, tracer trace.Tracer) element.Persistence {
	if tracer == nil {
		return next
	}
	return &Persistence{next: next, tracer: tracer}
}

func (p *Persistence) ReadUserRecords(ctx context.Context, user, typeName string) (map[string]element.Record, error) {
	ctx, span := p.tracer.Start(ctx, SpanReadRecords, trace.WithAttributes(
		attribute.String(AttrUser, user),
		attribute.String(AttrType, typeName),
	))
	defer span.End()

	recs, err := p.next.ReadUserRecords(ctx, user, typeName)
	// A missing collection is the common case, not a failure.
	if err != nil && !errors.Is(err, element.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(AttrRecordCount, len(recs)))
	return recs, err
}

func (p *Persistence) WriteUserRecords(ctx context.Context, user, typeName string, records map[string]element.Record) error {
	ctx, span := p.tracer.Start(ctx, SpanWriteRecords, trace.WithAttributes(
		attribute.String(AttrUser, user),
		attribute.String(AttrType, typeName),
		attribute.Int(AttrRecordCount, len(records)),
	))
	defer span.End()

	if err := p.next.WriteUserRecords(ctx, user, typeName, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *Persistence) ListKnownUsers(ctx context.Context) ([]string, error) {
	ctx, span := p.tracer.Start(ctx, SpanListUsers)
	defer span.End()

	users, err := p.next.ListKnownUsers(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return users, err
}
