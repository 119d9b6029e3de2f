// Package web serves the page-type framework over HTTP: listing, edit and
// show pages per type, the sidebar, the add-to popup, the automation API,
// a log event stream and the metrics endpoint.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/metrics"
	"github.com/zjrosen/pagetypes/internal/pubsub"
	"github.com/zjrosen/pagetypes/internal/rowsource"
	"github.com/zjrosen/pagetypes/internal/tracing"
	"github.com/zjrosen/pagetypes/internal/webapi"
)

// DefaultUserHeader carries the authenticated user set by the front proxy.
const DefaultUserHeader = "X-Remote-User"

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-Id"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// Config configures a Handler. Only Deps is required.
type Config struct {
	Deps element.Deps
	API  *webapi.API
	// Rows feeds the show page of types whose instances name a datasource.
	Rows       rowsource.Source
	Metrics    *metrics.Metrics
	Tracer     trace.Tracer
	UserHeader string
	// LogStream exposes the log as server-sent events.
	LogStream bool
	// Changes feeds the change event stream. Optional.
	Changes pubsub.Subscriber[element.Change]
	// WriteLock serializes requests that change persisted instances.
	// Share it with the API so both surfaces exclude each other.
	WriteLock sync.Locker
}

// Handler serves the HTTP routes.
type Handler struct {
	deps       element.Deps
	api        *webapi.API
	rows       rowsource.Source
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	userHeader string
	logStream  bool
	changes    pubsub.Subscriber[element.Change]

	writeMu sync.Locker
}

// NewHandler creates a handler.
func NewHandler(cfg Config) *Handler {
	header := cfg.UserHeader
	if header == "" {
		header = DefaultUserHeader
	}
	lock := cfg.WriteLock
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &Handler{
		deps:       cfg.Deps,
		api:        cfg.API,
		rows:       cfg.Rows,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		userHeader: header,
		logStream:  cfg.LogStream,
		changes:    cfg.Changes,
		writeMu:    lock,
	}
}

// Routes returns the request router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /health", "health", h.Health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	if h.logStream {
		h.handle(mux, "GET /events/log", "log_stream", h.StreamLog)
	}
	if h.changes != nil {
		h.handle(mux, "GET /events/changes", "change_stream", h.user(h.StreamChanges))
	}

	h.handle(mux, "GET /sidebar", "sidebar", h.user(h.Sidebar))
	h.handle(mux, "GET /context_links/{type}", "context_links", h.user(h.ContextLinks))
	h.handle(mux, "GET /popup_add", "popup_add", h.user(h.PopupAdd))
	h.handle(mux, "POST /ajax_add_element_to_container", "add_element", h.user(h.AddElement))
	if h.api != nil {
		h.handle(mux, "GET /api", "api_actions", h.user(h.ListActions))
		h.handle(mux, "POST /api/{action}", "api", h.user(h.CallAction))
	}

	// Per type pages share one path segment: "<type>s" lists,
	// "edit_<type>" edits and "<type>" shows.
	h.handle(mux, "GET /{page}", "page", h.user(h.Page))
	h.handle(mux, "POST /{page}", "page_submit", h.user(h.Submit))
	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern, route string, fn http.HandlerFunc) {
	var next http.Handler = fn
	next = tracing.Middleware(h.tracer, route, next)
	if h.metrics != nil {
		next = h.metrics.Instrument(route, next)
	}
	mux.Handle(pattern, h.requestID(next))
}

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// user rejects requests without an authenticated user.
func (h *Handler) user(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(h.userHeader))
		if user == "" {
			h.writeError(w, http.StatusUnauthorized, "unauthenticated", "Missing user", h.userHeader+" header is empty")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// RequestID returns the id assigned to the request of ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// session opens the request scoped session of the acting user.
func (h *Handler) session(r *http.Request) *element.Session {
	user, _ := r.Context().Value(userKey).(string)
	return element.NewSession(h.deps, user)
}

// HealthResponse is the response body of the health endpoint.
type HealthResponse struct {
	Status string   `json:"status"`
	Types  []string `json:"types"`
}

// Health reports the registered element types.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	for _, t := range h.deps.Registry.All() {
		resp.Types = append(resp.Types, t.Name())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListActions lists the automation API actions.
// GET /api
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.api.Actions())
}

// CallAction runs one automation API action with the JSON request body as
// arguments. The envelope is always answered with 200.
// POST /api/{action}
func (h *Handler) CallAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "Failed to read body", err.Error())
		return
	}
	user, _ := r.Context().Value(userKey).(string)
	resp := h.api.Call(r.Context(), user, r.PathValue("action"), body)
	h.writeJSON(w, http.StatusOK, resp)
}

const maxBody = 1 << 20

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatWeb, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeErr maps a framework error to its status and code.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.ErrorErr(log.CatWeb, "Request failed", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
	}
	h.writeError(w, status, code, http.StatusText(status), err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, element.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, element.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, element.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, element.ErrMissingContext):
		return http.StatusUnprocessableEntity, "missing_context"
	case errors.Is(err, element.ErrIndex):
		return http.StatusUnprocessableEntity, "invalid_index"
	case errors.Is(err, element.ErrInvalid):
		return http.StatusUnprocessableEntity, "invalid"
	case errors.Is(err, element.ErrConfigCorrupt):
		return http.StatusInternalServerError, "config_corrupt"
	}
	return http.StatusInternalServerError, "internal"
}
