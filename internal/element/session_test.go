package element_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func TestSession_EngineIsCached(t *testing.T) {
	env := newEnv(t)
	s := env.Session(testutil.Alice)

	a, err := s.Engine(context.Background(), "view")
	require.NoError(t, err)
	b, err := s.Engine(context.Background(), "view")
	require.NoError(t, err)
	require.Same(t, a, b)

	_, err = s.Engine(context.Background(), "report")
	require.ErrorIs(t, err, element.ErrNotFound)
}

func TestSession_GlobalPageLinksByTopic(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("allhosts", testutil.Title("All hosts"), testutil.Topic("Hosts")))
	env.Builtin("view", testutil.Record("misc", testutil.Title("Misc")))
	env.Builtin("view", testutil.Record("secret", testutil.Hidden()))
	env.Builtin("dashboard", testutil.Record("main", testutil.Title("Main dashboard")))

	groups, err := env.Session(testutil.Alice).GlobalPageLinksByTopic(context.Background())
	require.NoError(t, err)

	var topics []string
	for _, g := range groups {
		topics = append(topics, g.Topic)
	}
	require.Equal(t, []string{"Overview", "Hosts", "Other"}, topics)
	require.Equal(t, "dashboard?name=main", groups[0].Items[0].URL)
}

func TestSession_ContextPageLinksSkipsCurrent(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("hoststatus", testutil.SingleInfos("host")))
	env.Builtin("view", testutil.Record("hostproblems", testutil.SingleInfos("host")))
	s := env.Session(testutil.Alice)

	groups, err := s.ContextPageLinksByTopic(context.Background(), hostContext(t, "web01"), "view?name=hoststatus&host=web01")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Items, 1)
	require.Equal(t, "view?name=hostproblems&host=web01", groups[0].Items[0].URL)
}

func TestSession_AddToPopupAndAdd(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.Builtin("dashboard", testutil.Record("main", testutil.Title("Main")))
	s := env.Session(testutil.Alice)

	entries, err := s.AddToPopup(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dashboard", entries[0].Type)
	require.Equal(t, "Add to dashboard", entries[0].Phrase)
	require.Equal(t, []element.AddToTarget{{Name: "main", Title: "Main"}}, entries[0].Targets)

	change, err := s.AddElementToContainer(ctx, "dashboard", "main", "view", element.Record{"name": "hoststatus"})
	require.NoError(t, err)
	require.True(t, change.Cloned)
	els := change.Container.Elements()
	require.Len(t, els, 1)
	require.Equal(t, "view", els[0].(map[string]any)["type"])
}

func TestPageHeader(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("allhosts", testutil.Title("All hosts")))
	env.User(testutil.Bob, "view", testutil.Record("bobs", testutil.Title("Bob's"), testutil.Public()))
	e := engine(t, env, "view", testutil.Alice)

	require.Equal(t, "View - All hosts", e.PageHeader(mustGet(t, e, "allhosts")))
	require.Equal(t, "View - Bob's (bob)", e.PageHeader(mustGet(t, e, "bobs")))

	_, err := e.Show("")
	require.ErrorIs(t, err, element.ErrInvalid)
}
