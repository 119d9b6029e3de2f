package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func setupTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return provider.Tracer("test-tracer"), exporter
}

func spanByName(exporter *tracetest.InMemoryExporter, name string) (tracetest.SpanStub, bool) {
	for _, span := range exporter.GetSpans() {
		if span.Name == name {
			return span, true
		}
	}
	return tracetest.SpanStub{}, false
}

func attr(span tracetest.SpanStub, key string) attribute.Value {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(DefaultConfig())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.FilePath = ""
	_, err := NewProvider(cfg)
	require.ErrorContains(t, err, "file_path required")

	cfg.Exporter = "jaeger"
	_, err = NewProvider(cfg)
	require.ErrorContains(t, err, "unsupported exporter type")
}

func TestNewProvider_FileExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "traces.jsonl")
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.FilePath = path

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "test.span")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	require.Equal(t, "test.span", rec.Name)
	require.Len(t, rec.TraceID, 32)
}

func TestFileExporter_ErrorStatusAndParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	start := time.Now()
	stub := tracetest.SpanStub{
		Name: "persistence.write",
		SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1},
			SpanID:  trace.SpanID{3},
		}),
		Parent:     parent,
		StartTime:  start,
		EndTime:    start.Add(1500 * time.Microsecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "disk full"},
		Attributes: []attribute.KeyValue{attribute.String(AttrUser, "alice")},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))
	require.Error(t, exp.ExportSpans(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "ERROR", rec.Status)
	require.Equal(t, "disk full", rec.StatusMsg)
	require.Equal(t, parent.SpanID().String(), rec.ParentSpanID)
	require.InDelta(t, 1.5, rec.DurationMs, 0.001)
	require.Equal(t, "alice", rec.Attributes[AttrUser])
}

func TestPersistence_Spans(t *testing.T) {
	ctx := context.Background()
	tracer, exporter := setupTestTracer(t)
	mem := testutil.NewMemoryPersistence()
	p := WrapPersistence(mem, tracer)

	require.NoError(t, p.WriteUserRecords(ctx, "alice", "view", map[string]element.Record{
		"mine": testutil.Record("mine"),
	}))
	recs, err := p.ReadUserRecords(ctx, "alice", "view")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = p.ReadUserRecords(ctx, "bob", "view")
	require.ErrorIs(t, err, element.ErrNotFound)

	users, err := p.ListKnownUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, users)

	write, ok := spanByName(exporter, SpanWriteRecords)
	require.True(t, ok)
	require.Equal(t, "alice", attr(write, AttrUser).AsString())
	require.Equal(t, int64(1), attr(write, AttrRecordCount).AsInt64())

	for _, span := range exporter.GetSpans() {
		if span.Name == SpanReadRecords {
			require.NotEqual(t, codes.Error, span.Status.Code, "missing collection is not an error")
		}
	}
	_, ok = spanByName(exporter, SpanListUsers)
	require.True(t, ok)
}

func TestPersistence_WriteErrorRecorded(t *testing.T) {
	tracer, exporter := setupTestTracer(t)
	mem := testutil.NewMemoryPersistence()
	mem.FailWrites(errors.New("read-only filesystem"))

	err := WrapPersistence(mem, tracer).WriteUserRecords(context.Background(), "alice", "view", nil)
	require.Error(t, err)

	span, ok := spanByName(exporter, SpanWriteRecords)
	require.True(t, ok)
	require.Equal(t, codes.Error, span.Status.Code)
	require.Len(t, span.Events, 1)
}

func TestWrapPersistence_NilTracer(t *testing.T) {
	mem := testutil.NewMemoryPersistence()
	require.Same(t, mem, WrapPersistence(mem, nil))
}

func TestMiddleware(t *testing.T) {
	tracer, exporter := setupTestTracer(t)
	var sawSpan bool
	h := Middleware(tracer, "GET /api/pages", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanContextFromContext(r.Context()).IsValid()
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/pages", nil))

	require.True(t, sawSpan)
	span, ok := spanByName(exporter, "http GET /api/pages")
	require.True(t, ok)
	require.Equal(t, trace.SpanKindServer, span.SpanKind)
	require.Equal(t, int64(500), attr(span, AttrHTTPStatus).AsInt64())
	require.Equal(t, codes.Error, span.Status.Code)
}
