package element_test

import (
	"context"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

var hostInfos = []string{"host", "service", "hostgroup", "servicegroup"}

// newEnv registers a view type (context aware) and a dashboard type
// (container) backed by env.Builtins.
func newEnv(t require.TestingT) *testutil.Env {
	env := testutil.NewEnv()
	view, err := element.NewBuilder("view").
		Phrases(map[string]string{"title": "View", "title_plural": "Views", "add_to": "Add to view"}).
		Overridable().
		Renderable().
		ContextAware(hostInfos, nil).
		DefaultTopic("Other").
		Builtins(env.Builtins).
		Build()
	require.NoError(t, err)
	env.Registry.Register(view)

	dashboard, err := element.NewBuilder("dashboard").
		Phrases(map[string]string{"title": "Dashboard", "title_plural": "Dashboards", "add_to": "Add to dashboard"}).
		Overridable().
		Renderable().
		Container().
		DefaultTopic("Overview").
		Builtins(env.Builtins).
		Build()
	require.NoError(t, err)
	env.Registry.Register(dashboard)
	return env
}

func engine(t require.TestingT, env *testutil.Env, typeName, user string) *element.Engine {
	e, err := env.Session(user).Engine(context.Background(), typeName)
	require.NoError(t, err)
	return e
}

func names(instances []*element.Instance) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Key().String())
	}
	return out
}
