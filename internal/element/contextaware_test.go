package element_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/selector"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func hostContext(t *testing.T, host string) selector.Context {
	c, err := selector.FromValues(hostInfos, []string{"host"}, selector.ContextMap{"host": {"host": host}})
	require.NoError(t, err)
	return c
}

func TestBuildInnerContext_MissingContext(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.SingleInfos("host")))
	e := engine(t, env, "view", testutil.Alice)
	inst := mustGet(t, e, "hoststatus")

	external, err := inst.ContextFromQuery(env.Selectors, url.Values{})
	require.NoError(t, err)
	_, err = inst.BuildInnerContext(external, env.Infos)
	require.ErrorIs(t, err, element.ErrMissingContext)
	var missing *element.MissingContextError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "host", missing.Info)
	require.Equal(t, "Host", missing.InfoTitle)

	external, err = inst.ContextFromQuery(env.Selectors, url.Values{"host": {"web01"}})
	require.NoError(t, err)
	c, err := inst.BuildInnerContext(external, env.Infos)
	require.NoError(t, err)
	require.Equal(t, "Filter: host_name = web01\n", env.Selectors.LivestatusFilters(c))
}

func TestBuildInnerContext_IntrinsicSatisfies(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("web01",
		testutil.SingleInfos("host"),
		testutil.Context(map[string]any{"host": map[string]any{"host": "web01"}}),
	))
	inst := mustGet(t, engine(t, env, "view", testutil.Alice), "web01")
	require.Empty(t, inst.UnsatisfiedSingleInfos())

	external, err := inst.ContextFromQuery(env.Selectors, url.Values{"host": {"db01"}})
	require.NoError(t, err)
	c, err := inst.BuildInnerContext(external, env.Infos)
	require.NoError(t, err)
	values, ok := c.SelectorValues("host")
	require.True(t, ok)
	require.Equal(t, "db01", values["host"])
}

func TestRelevantForContext(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.SingleInfos("host")))
	env.Builtin("view", testutil.Record("servicedetail", testutil.SingleInfos("host", "service")))
	env.Builtin("view", testutil.Record("pinned", testutil.SingleInfos("host"),
		testutil.Context(map[string]any{"host": map[string]any{"host": "x"}})))
	env.Builtin("view", testutil.Record("allhosts"))
	env.Builtin("view", testutil.Record("nobutton", testutil.SingleInfos("host"), testutil.Attr("hidebutton", true)))
	e := engine(t, env, "view", testutil.Alice)

	c := hostContext(t, "web01")
	relevant := map[string]bool{}
	for _, inst := range e.Pages() {
		relevant[inst.Name()] = inst.RelevantForContext(c)
	}
	require.Equal(t, map[string]bool{
		"hoststatus":    true,
		"servicedetail": false,
		"pinned":        false,
		"allhosts":      false,
		"nobutton":      false,
	}, relevant)

	links := e.ContextPageLinks(c)
	require.Len(t, links, 1)
	require.Equal(t, "view?name=hoststatus&host=web01", links[0].URL)
}

func TestContextFromRow(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.SingleInfos("host")))
	inst := mustGet(t, engine(t, env, "view", testutil.Alice), "hoststatus")

	c, err := inst.ContextFromRow(env.Infos, selector.Row{"host_name": "web01", "state": 0})
	require.NoError(t, err)
	require.Equal(t, "view?name=hoststatus&host=web01", inst.URLForContext(c))

	_, err = inst.ContextFromRow(env.Infos, selector.Row{"state": 0})
	require.ErrorIs(t, err, element.ErrNotFound)
}

func TestSession_PrepareRender(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.Title("Status of host"), testutil.SingleInfos("host")))
	s := env.Session(testutil.Alice)

	rc, err := s.PrepareRender(context.Background(), "view", "hoststatus", url.Values{
		"host": {"web01"}, "service_regex": {"^CPU"},
	})
	require.NoError(t, err)
	require.Equal(t, "Filter: host_name = web01\nFilter: service_description ~~ ^CPU\n", rc.Filters)
	require.Equal(t, "web01", rc.HeadingPrefix)
	require.NotEmpty(t, rc.Selectors)

	_, err = s.PrepareRender(context.Background(), "view", "hoststatus", url.Values{})
	require.ErrorIs(t, err, element.ErrMissingContext)

	_, err = s.PrepareRender(context.Background(), "view", "nope", url.Values{})
	require.ErrorIs(t, err, element.ErrNotFound)
}

func TestSession_URLToPageForRow(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.SingleInfos("host")))
	env.Builtin("dashboard", testutil.Record("main"))
	s := env.Session(testutil.Alice)

	u, err := s.URLToPageForRow(context.Background(), "view", "hoststatus", selector.Row{"host_name": "db01"})
	require.NoError(t, err)
	require.Equal(t, "view?name=hoststatus&host=db01", u)

	_, err = s.URLToPageForRow(context.Background(), "dashboard", "main", selector.Row{})
	require.ErrorIs(t, err, element.ErrInvalid)
}
