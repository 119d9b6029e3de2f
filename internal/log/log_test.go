package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/pubsub"
)

func TestFormat_Fields(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := format(ts, LevelWarn, CatStore, "corrupt file", []any{"user", "alice", "type"})
	require.Equal(t, "2026-01-02T03:04:05 [WARN] [store] corrupt file user=alice type=<missing>\n", got)
}

func TestLog_RespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelInfo)

	Debug(CatResolve, "hidden")
	Info(CatResolve, "shown", "name", "hosts")
	ErrorErr(CatDB, "write failed", errors.New("disk full"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "[INFO] [resolve] shown name=hosts")
	require.Contains(t, out, "error=disk full")
}

func TestLog_Disabled(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelDebug)
	SetEnabled(false)
	defer SetEnabled(true)

	Warn(CatWeb, "nope")
	require.Empty(t, buf.String())
}

func TestNewListener_ReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, LevelDebug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewListener(ctx)
	require.NotNil(t, l)

	Info(CatAPI, "action", "name", "get_page")

	ev, ok := l.Next()
	require.True(t, ok)
	require.Equal(t, pubsub.LoggedEvent, ev.Type)
	require.Contains(t, ev.Payload, "action name=get_page")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, LevelWarn, ParseLevel("warning"))
	require.Equal(t, LevelError, ParseLevel("error"))
	require.Equal(t, LevelInfo, ParseLevel("bogus"))
}
