package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/metrics"
	"github.com/zjrosen/pagetypes/internal/pagetypes"
	"github.com/zjrosen/pagetypes/internal/pubsub"
	"github.com/zjrosen/pagetypes/internal/rowsource"
	"github.com/zjrosen/pagetypes/internal/templates"
	"github.com/zjrosen/pagetypes/internal/testutil"
	"github.com/zjrosen/pagetypes/internal/webapi"
)

// newEnv registers the shipped view and dashboard types over a small set
// of builtin and user pages.
func newEnv(t *testing.T) *testutil.Env {
	t.Helper()
	env := testutil.NewEnv()
	view, err := pagetypes.NewViewType([]string{"host", "service"}, env.Builtins)
	require.NoError(t, err)
	dashboard, err := pagetypes.NewDashboardType(env.Builtins)
	require.NoError(t, err)
	env.Registry.Register(view)
	env.Registry.Register(dashboard)

	env.Builtin("view", testutil.Record("allhosts", testutil.Title("All hosts"), testutil.Topic("Hosts"), testutil.Attr("datasource", "hosts")))
	env.Builtin("view", testutil.Record("hoststatus", testutil.Title("Host status"), testutil.SingleInfos("host"), testutil.Attr("datasource", "services")))
	env.Builtin("view", testutil.Record("hostproblems", testutil.Title("Host problems"), testutil.SingleInfos("host"), testutil.Attr("datasource", "services")))
	env.Builtin("dashboard", testutil.Record("main", testutil.Title("Main")))
	env.User(testutil.Bob, "view", testutil.Record("shared", testutil.Title("Shared"), testutil.Public()))
	env.User(testutil.Bob, "view", testutil.Record("private", testutil.Title("Private")))
	return env
}

func newHandler(t *testing.T, env *testutil.Env, opts ...func(*Config)) *Handler {
	t.Helper()
	rows, err := rowsource.ParseFixture(templates.DemoRows())
	require.NoError(t, err)
	api := webapi.New(env.Deps())
	webapi.RegisterDefaults(api)
	cfg := Config{Deps: env.Deps(), API: api, Rows: rows, WriteLock: api.WriteLock()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewHandler(cfg)
}

func do(t *testing.T, h http.Handler, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if user != "" {
		req.Header.Set(DefaultUserHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandler_Health(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
	resp := decode[HealthResponse](t, w)
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, []string{"view", "dashboard"}, resp.Types)
}

func TestHandler_RequestIDEchoed(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestHandler_RequiresUser(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/views", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "unauthenticated", decode[ErrorResponse](t, w).Code)
}

func TestHandler_CustomUserHeader(t *testing.T) {
	h := newHandler(t, newEnv(t), func(c *Config) { c.UserHeader = "X-Forwarded-User" }).Routes()

	req := httptest.NewRequest(http.MethodGet, "/sidebar", nil)
	req.Header.Set("X-Forwarded-User", testutil.Alice)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_UnknownPage(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()
	w := do(t, h, http.MethodGet, "/graphs", testutil.Alice, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_List(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/views", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[element.PageList](t, w)
	require.Equal(t, "Views", list.Title)
	require.Len(t, list.Groups, 2)
	require.Equal(t, element.GroupForeign, list.Groups[0].Title)
	require.Len(t, list.Groups[0].Items, 1)
	require.Equal(t, "shared", list.Groups[0].Items[0].Name)
	require.Equal(t, element.GroupBuiltin, list.Groups[1].Title)
	require.Len(t, list.Groups[1].Items, 3)
}

func TestHandler_List_GuestForbidden(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/views", testutil.Guest, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "unauthorized", decode[ErrorResponse](t, w).Code)
}

func TestHandler_List_Delete(t *testing.T) {
	env := newEnv(t)
	h := newHandler(t, env).Routes()

	w := do(t, h, http.MethodGet, "/views?_delete=shared&_owner=bob", testutil.Alice, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, env.Store.Records(testutil.Bob, "view"), "shared")

	w = do(t, h, http.MethodGet, "/views?_delete=shared&_owner=bob", testutil.Admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotContains(t, env.Store.Records(testutil.Bob, "view"), "shared")

	w = do(t, h, http.MethodGet, "/views?_delete=private", testutil.Bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, env.Store.Records(testutil.Bob, "view"))
}

func TestHandler_EditRendersCreateForm(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/edit_view?mode=create", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[EditResponse](t, w)
	require.Equal(t, element.ModeCreate, resp.Mode)
	require.False(t, resp.Saved)
	require.True(t, strings.HasPrefix(resp.Record.String("name"), "view_"))

	var keys []string
	for _, p := range resp.Parameters {
		keys = append(keys, p.Key)
	}
	require.Contains(t, keys, "datasource")
	require.Contains(t, keys, "single_infos")
}

func TestHandler_EditSubmit(t *testing.T) {
	env := newEnv(t)
	h := newHandler(t, env).Routes()
	form := map[string]any{
		"name": "mine", "title": "Mine", "topic": "Hosts", "description": "",
		"datasource": "services", "layout": "table", "single_infos": []string{"host"},
	}

	w := do(t, h, http.MethodPost, "/edit_view?mode=create", testutil.Alice, form)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[EditResponse](t, w)
	require.True(t, resp.Saved)
	require.Equal(t, "views", resp.Next)
	require.Contains(t, env.Store.Records(testutil.Alice, "view"), "mine")

	// Same name again is reported on the form.
	w = do(t, h, http.MethodPost, "/edit_view?mode=create", testutil.Alice, form)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp = decode[EditResponse](t, w)
	require.False(t, resp.Saved)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "name", resp.Errors[0].Field)
}

func TestHandler_EditSubmit_InvalidJSON(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	req := httptest.NewRequest(http.MethodPost, "/edit_view?mode=create", strings.NewReader("not json"))
	req.Header.Set(DefaultUserHeader, testutil.Alice)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_json", decode[ErrorResponse](t, w).Code)
}

func TestHandler_EditUnknownMode(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()
	w := do(t, h, http.MethodGet, "/edit_view?mode=explode", testutil.Alice, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_Show(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/view?name=allhosts", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ShowResponse](t, w)
	require.Equal(t, "View - All hosts", resp.Header)
	require.Len(t, resp.Rows, 3)
	require.Equal(t, "views", resp.Links["list"])
	require.NotContains(t, resp.Links, "edit")
}

func TestHandler_ShowPinnedToHost(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/view?name=hoststatus&host=web01", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ShowResponse](t, w)
	require.Equal(t, "Filter: host_name = web01\n", resp.Filters)
	require.Len(t, resp.Rows, 2)
	for _, row := range resp.Rows {
		require.Equal(t, "web01", row["host_name"])
	}

	var related []string
	for _, g := range resp.Related {
		for _, l := range g.Links {
			related = append(related, l.Title)
		}
	}
	require.Equal(t, []string{"Host problems"}, related)
}

func TestHandler_ShowErrors(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing name", "/view", http.StatusUnprocessableEntity, "invalid"},
		{"unknown page", "/view?name=nope", http.StatusNotFound, "not_found"},
		{"private page of other user", "/view?name=private", http.StatusNotFound, "not_found"},
		{"missing context", "/view?name=hoststatus", http.StatusUnprocessableEntity, "missing_context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.target, testutil.Alice, nil)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			require.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandler_CorruptCollection(t *testing.T) {
	env := newEnv(t)
	env.Store.Corrupt(testutil.Alice, "view")
	h := newHandler(t, env).Routes()

	w := do(t, h, http.MethodGet, "/views", testutil.Alice, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "config_corrupt", decode[ErrorResponse](t, w).Code)
}

func TestHandler_Sidebar(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/sidebar", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]LinkGroup](t, w)

	titles := map[string][]string{}
	for _, g := range groups {
		for _, l := range g.Links {
			titles[g.Topic] = append(titles[g.Topic], l.Title)
		}
	}
	require.Contains(t, titles["Hosts"], "All hosts")
	require.Contains(t, titles["Overview"], "Main")
}

func TestHandler_ContextLinks(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/context_links/view?name=hoststatus&host=db01", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	groups := decode[[]LinkGroup](t, w)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Links, 1)
	require.Contains(t, groups[0].Links[0].URL, "host=db01")
}

func TestHandler_PopupAndAddElement(t *testing.T) {
	env := newEnv(t)
	h := newHandler(t, env).Routes()

	w := do(t, h, http.MethodGet, "/popup_add", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]element.AddToEntry](t, w)
	require.Len(t, entries, 1)
	require.Equal(t, "dashboard", entries[0].Type)

	w = do(t, h, http.MethodPost, "/ajax_add_element_to_container", testutil.Alice, AddElementRequest{
		ContainerType: "dashboard",
		ContainerName: "main",
		ElementType:   "view",
		CreateInfo:    element.Record{"name": "allhosts"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[AddElementResponse](t, w)
	require.True(t, resp.Cloned)
	require.Equal(t, "dashboard?name=main", resp.URL)
	require.Contains(t, env.Store.Records(testutil.Alice, "dashboard"), "main")
}

func TestHandler_AddElement_BadRequest(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodPost, "/ajax_add_element_to_container", testutil.Alice, map[string]string{"container_type": "dashboard"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/ajax_add_element_to_container", testutil.Alice, map[string]string{"container": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_json", decode[ErrorResponse](t, w).Code)
}

func TestHandler_API(t *testing.T) {
	h := newHandler(t, newEnv(t)).Routes()

	w := do(t, h, http.MethodGet, "/api", testutil.Alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, decode[[]webapi.Action](t, w))

	w = do(t, h, http.MethodPost, "/api/get_page", testutil.Alice, map[string]string{"type": "view", "name": "shared"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	require.EqualValues(t, webapi.ResultOK, resp["result_code"])

	w = do(t, h, http.MethodPost, "/api/reboot", testutil.Alice, map[string]string{})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[map[string]any](t, w)
	require.EqualValues(t, webapi.ResultError, resp["result_code"])
}

func TestHandler_MetricsAndTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("test")
	m := metrics.New()
	h := newHandler(t, newEnv(t), func(c *Config) {
		c.Metrics = m
		c.Tracer = tracer
	}).Routes()

	do(t, h, http.MethodGet, "/view?name=allhosts", testutil.Alice, nil)
	do(t, h, http.MethodGet, "/view?name=nope", testutil.Alice, nil)

	n, err := promtest.GatherAndCount(m.Registry(), "pagetypes_page_resolutions_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	n, err = promtest.GatherAndCount(m.Registry(), "pagetypes_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"http page", "http page"}, names)

	w := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "pagetypes_http_requests_total")
}

func TestHandler_StreamLog(t *testing.T) {
	var buf bytes.Buffer
	log.InitWriter(&buf, log.LevelDebug)
	t.Cleanup(func() { log.SetEnabled(false) })

	disabled := do(t, newHandler(t, newEnv(t)).Routes(), http.MethodGet, "/events/log", testutil.Alice, nil)
	require.Equal(t, http.StatusNotFound, disabled.Code)

	srv := httptest.NewServer(newHandler(t, newEnv(t), func(c *Config) { c.LogStream = true }).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/log", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	log.Info(log.CatWeb, "hello from test")

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, "hello from test") {
			break
		}
	}
}

func viewForm(name string) map[string]any {
	return map[string]any{
		"name": name, "title": name, "topic": "Hosts", "description": "",
		"datasource": "services", "layout": "table", "single_infos": []string{"host"},
	}
}

func TestHandler_ConcurrentWritersKeepEveryChange(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Alice, "view", testutil.Record("doomed", testutil.Title("Doomed")))
	handler := newHandler(t, env)
	h := handler.Routes()

	type call struct {
		method, target string
		body           []byte
	}
	var calls []call
	for _, name := range []string{"first", "second", "third"} {
		data, err := json.Marshal(viewForm(name))
		require.NoError(t, err)
		calls = append(calls, call{http.MethodPost, "/edit_view?mode=create", data})
	}
	calls = append(calls, call{http.MethodGet, "/views?_delete=doomed", nil})

	// All requests queue on the write lock before any of them may save.
	handler.writeMu.Lock()
	codes := make([]int, len(calls))
	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(c.method, c.target, bytes.NewReader(c.body))
			req.Header.Set(DefaultUserHeader, testutil.Alice)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			codes[i] = w.Code
		}()
	}
	time.Sleep(50 * time.Millisecond)
	handler.writeMu.Unlock()
	wg.Wait()

	for i, code := range codes {
		require.Equal(t, http.StatusOK, code, calls[i].target)
	}
	records := env.Store.Records(testutil.Alice, "view")
	require.Contains(t, records, "first")
	require.Contains(t, records, "second")
	require.Contains(t, records, "third")
	require.NotContains(t, records, "doomed")
}

func TestHandler_StreamChanges(t *testing.T) {
	env := newEnv(t)
	disabled := do(t, newHandler(t, env).Routes(), http.MethodGet, "/events/changes", testutil.Alice, nil)
	require.Equal(t, http.StatusNotFound, disabled.Code)

	h := newHandler(t, env, func(c *Config) { c.Changes = env.Changes }).Routes()
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/changes", nil)
	require.NoError(t, err)
	req.Header.Set(DefaultUserHeader, testutil.Alice)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	// Bob's private view is not announced to alice; her own view is.
	w := do(t, h, http.MethodPost, "/edit_view?mode=create", testutil.Bob, viewForm("secret"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, h, http.MethodPost, "/edit_view?mode=create", testutil.Alice, viewForm("mine"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var entry changeEntry
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &entry))
		require.Equal(t, "mine", entry.Name)
		require.Equal(t, testutil.Alice, entry.Owner)
		require.Equal(t, "view", entry.Type)
		require.Equal(t, pubsub.CreatedEvent, entry.Event)
		break
	}
}
