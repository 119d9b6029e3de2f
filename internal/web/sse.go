package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/pubsub"
)

// heartbeatInterval keeps idle event streams open through proxies.
var heartbeatInterval = 30 * time.Second

// logEntry is the data of one "log" event.
type logEntry struct {
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// changeEntry is the data of one "change" event.
type changeEntry struct {
	Event pubsub.EventType `json:"event"`
	element.Change
	Timestamp time.Time `json:"timestamp"`
}

// StreamLog streams log entries as server-sent events until the client
// goes away.
// GET /events/log
func (h *Handler) StreamLog(w http.ResponseWriter, r *http.Request) {
	listener := log.NewListener(r.Context())
	if listener == nil {
		h.writeError(w, http.StatusServiceUnavailable, "logging_disabled", "Logging is not initialized", "")
		return
	}
	stream(h, w, r, listener, "log", func(ev log.LogEvent) any {
		return logEntry{Line: ev.Payload, Timestamp: ev.Timestamp}
	})
}

// StreamChanges streams saved instance changes as server-sent events.
// Only changes of instances the user may see are sent.
// GET /events/changes
func (h *Handler) StreamChanges(w http.ResponseWriter, r *http.Request) {
	listener := pubsub.NewListener(r.Context(), h.changes)
	user, _ := r.Context().Value(userKey).(string)
	stream(h, w, r, listener, "change", func(ev pubsub.Event[element.Change]) any {
		if !h.mayObserve(r.Context(), user, ev.Payload) {
			return nil
		}
		return changeEntry{Event: ev.Type, Change: ev.Payload, Timestamp: ev.Timestamp}
	})
}

// mayObserve reports whether user may learn about c: own changes always,
// others only while the instance is visible to user.
func (h *Handler) mayObserve(ctx context.Context, user string, c element.Change) bool {
	if c.Owner == user {
		return true
	}
	e, err := element.NewSession(h.deps, user).Engine(ctx, c.Type)
	if err != nil {
		return false
	}
	inst, err := e.Store().Get(element.Key{Owner: c.Owner, Name: c.Name})
	if err != nil {
		// Deleted instances can no longer be checked.
		return e.Policy().HasOverriding(e.Type(), "delete_foreign")
	}
	return e.Policy().IsPublic(inst) && e.Policy().MaySee(inst)
}

// stream writes the events of listener as server-sent events named event
// until the client goes away. encode returning nil skips the event.
func stream[T any](h *Handler, w http.ResponseWriter, r *http.Request, listener *pubsub.Listener[T], event string, encode func(pubsub.Event[T]) any) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	events := make(chan pubsub.Event[T])
	go func() {
		defer close(events)
		for {
			ev, ok := listener.Next()
			if !ok {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			v := encode(ev)
			if v == nil {
				continue
			}
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		}
	}
}
