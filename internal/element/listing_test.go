package element_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func groupTitles(list *element.PageList) []string {
	var out []string
	for _, g := range list.Groups {
		out = append(out, g.Title)
	}
	return out
}

func TestPageList_Groups(t *testing.T) {
	env := newEnv(t)
	env.Builtin("view", testutil.Record("allhosts", testutil.Title("All hosts")))
	env.User(testutil.Alice, "view", testutil.Record("mine", testutil.Hidden()))
	env.User(testutil.Bob, "view", testutil.Record("shared", testutil.Public()))
	env.User(testutil.Bob, "view", testutil.Record("private"))

	list, err := engine(t, env, "view", testutil.Alice).PageList()
	require.NoError(t, err)
	require.Equal(t, "Views", list.Title)
	require.Equal(t, "edit_view?mode=create", list.CreateURL)
	require.Equal(t, []string{element.GroupCustomized, element.GroupForeign, element.GroupBuiltin}, groupTitles(list))

	mine := list.Groups[0].Items[0]
	require.Empty(t, mine.URL)
	require.Equal(t, "edit_view?load_name=mine", mine.EditURL)
	require.Equal(t, "views?_delete=mine", mine.DeleteURL)

	foreign := list.Groups[1].Items
	require.Len(t, foreign, 1)
	require.Equal(t, "shared", foreign[0].Name)
	require.Empty(t, foreign[0].EditURL)
	require.Empty(t, foreign[0].DeleteURL)

	builtin := list.Groups[2].Items[0]
	require.Equal(t, "view?name=allhosts", builtin.URL)
	require.Equal(t, "edit_view?load_user=&load_name=allhosts&mode=clone", builtin.CloneURL)
	require.Empty(t, builtin.DeleteURL)
}

func TestPageList_AdminSeesDeletableForeign(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Bob, "view", testutil.Record("private"))

	list, err := engine(t, env, "view", testutil.Admin).PageList()
	require.NoError(t, err)
	require.Equal(t, []string{element.GroupForeign}, groupTitles(list))
	require.Equal(t, "views?_delete=private&_owner=bob", list.Groups[0].Items[0].DeleteURL)
}

func TestPageList_NeedsEdit(t *testing.T) {
	env := newEnv(t)
	_, err := engine(t, env, "view", testutil.Guest).PageList()
	require.ErrorIs(t, err, element.ErrUnauthorized)
}

func TestDeleteFromList(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.User(testutil.Alice, "view", testutil.Record("mine"))
	env.User(testutil.Bob, "view", testutil.Record("bobs"))

	e := engine(t, env, "view", testutil.Alice)
	require.ErrorIs(t, e.DeleteFromList(ctx, testutil.Bob, "bobs"), element.ErrUnauthorized)
	require.NoError(t, e.DeleteFromList(ctx, "", "mine"))
	require.Empty(t, env.Store.Records(testutil.Alice, "view"))
}
