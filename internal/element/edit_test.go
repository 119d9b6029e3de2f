package element_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pagetypes/internal/element"
	"github.com/zjrosen/pagetypes/internal/testutil"
)

func form(name, title string) element.Record {
	return element.Record{"name": name, "title": title, "topic": "Hosts", "description": ""}
}

func TestEdit_CreateRendersDefaults(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Bob, "view", testutil.Record("view_1"))
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{Mode: element.ModeCreate})
	require.NoError(t, err)
	require.False(t, page.Saved)
	require.Equal(t, "view_2", page.Record.String(element.KeyName))
	require.Equal(t, "Other", page.Record.String(element.KeyTopic))
}

func TestEdit_CreateSaves(t *testing.T) {
	env := newEnv(t)
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode:   element.ModeCreate,
		Values: form("myview", "My view"),
	})
	require.NoError(t, err)
	require.NoError(t, page.Err())
	require.True(t, page.Saved)
	require.True(t, page.SidebarReload)
	require.Equal(t, testutil.Alice, page.Instance.Owner())
	require.Equal(t, "My view", env.Store.Records(testutil.Alice, "view")["myview"].String(element.KeyTitle))
}

func TestEdit_DuplicateNameIsConflict(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Alice, "view", testutil.Record("taken"))
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode:   element.ModeCreate,
		Values: form("taken", "Again"),
	})
	require.NoError(t, err)
	require.False(t, page.Saved)
	require.ErrorIs(t, page.Err(), element.ErrConflict)
	require.Equal(t, 0, env.Store.Writes())
}

func TestEdit_RenameRemovesOldName(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Alice, "view", testutil.Record("old", testutil.Attr("painter", "table")))
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode:     element.ModeEdit,
		LoadName: "old",
		Values:   form("new", "Renamed"),
	})
	require.NoError(t, err)
	require.True(t, page.Saved)

	persisted := env.Store.Records(testutil.Alice, "view")
	require.Equal(t, []string{"new"}, keys(persisted))
	require.Equal(t, "table", persisted["new"].String("painter"))
}

func TestEdit_KeepNameIsNoConflict(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Alice, "view", testutil.Record("same"))
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode:     element.ModeEdit,
		LoadName: "same",
		Values:   form("same", "New title"),
	})
	require.NoError(t, err)
	require.True(t, page.Saved)
	require.Equal(t, "New title", mustGet(t, e, "same").Title())
}

func TestEdit_EditOnlyOwnInstances(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Bob, "view", testutil.Record("bobs", testutil.Public()))

	_, err := engine(t, env, "view", testutil.Alice).Edit(context.Background(), element.EditRequest{
		Mode: element.ModeEdit, LoadName: "bobs",
	})
	require.ErrorIs(t, err, element.ErrNotFound)
}

func TestEdit_Clone(t *testing.T) {
	env := newEnv(t)
	env.User(testutil.Bob, "view", testutil.Record("shared", testutil.Public(), testutil.Title("Shared")))
	env.User(testutil.Bob, "view", testutil.Record("private"))
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode: element.ModeClone, LoadUser: testutil.Bob, LoadName: "shared",
	})
	require.NoError(t, err)
	require.Equal(t, "Shared", page.Record.String(element.KeyTitle))

	_, err = e.Edit(context.Background(), element.EditRequest{
		Mode: element.ModeClone, LoadUser: testutil.Bob, LoadName: "private",
	})
	require.ErrorIs(t, err, element.ErrUnauthorized)
}

func TestEdit_ValidationErrors(t *testing.T) {
	env := newEnv(t)
	e := engine(t, env, "view", testutil.Alice)

	page, err := e.Edit(context.Background(), element.EditRequest{
		Mode:   element.ModeCreate,
		Values: element.Record{"name": "9bad", "title": "", "topic": "x"},
	})
	require.NoError(t, err)
	require.ErrorIs(t, page.Err(), element.ErrInvalid)
	var fields []string
	for _, verr := range page.Errors {
		fields = append(fields, verr.Field)
	}
	require.Equal(t, []string{"name", "title"}, fields)
}

func TestEdit_NeedsEditPermission(t *testing.T) {
	env := newEnv(t)
	_, err := engine(t, env, "view", testutil.Guest).Edit(context.Background(), element.EditRequest{Mode: element.ModeCreate})
	require.ErrorIs(t, err, element.ErrUnauthorized)
}

func TestParseEditMode(t *testing.T) {
	m, err := element.ParseEditMode("")
	require.NoError(t, err)
	require.Equal(t, element.ModeEdit, m)

	m, err = element.ParseEditMode("clone")
	require.NoError(t, err)
	require.Equal(t, element.ModeClone, m)

	_, err = element.ParseEditMode("destroy")
	require.ErrorIs(t, err, element.ErrInvalid)
}
