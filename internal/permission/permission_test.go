package permission

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeclare_Idempotent(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Declare("general.edit_view", "Customize views", "", []string{RoleAdmin, RoleUser}))
	require.False(t, r.Declare("general.edit_view", "Other title", "", []string{RoleGuest}))

	p, ok := r.Get("general.edit_view")
	require.True(t, ok)
	require.Equal(t, "Customize views", p.Title)
	require.Equal(t, "general", p.Section)
	require.Equal(t, []string{RoleAdmin, RoleUser}, p.DefaultRoles)
}

func TestMay_DefaultRoles(t *testing.T) {
	r := NewRegistry()
	r.Declare("general.force_view", "Modify builtin views", "", []string{RoleAdmin})
	r.SetUserRoles("root", RoleAdmin)
	r.SetUserRoles("alice", RoleUser)

	require.True(t, r.May("root", "general.force_view"))
	require.False(t, r.May("alice", "general.force_view"))
	require.False(t, r.May("nobody", "general.force_view"))
	require.False(t, r.May("root", "undeclared.perm"))
}

func TestMay_MultipleRoles(t *testing.T) {
	r := NewRegistry()
	r.Declare("general.force_view", "", "", []string{RoleAdmin})
	r.SetUserRoles("bob", RoleGuest, RoleAdmin)

	require.True(t, r.May("bob", "general.force_view"))
}

func TestOverrides(t *testing.T) {
	r := NewRegistry()
	r.Declare("general.publish_view", "", "", []string{RoleAdmin, RoleUser})
	r.SetUserRoles("alice", RoleUser)
	r.SetUserRoles("guest", RoleGuest)

	r.Revoke(RoleUser, "general.publish_view")
	r.Grant(RoleGuest, "general.publish_view")

	require.False(t, r.May("alice", "general.publish_view"))
	require.True(t, r.May("guest", "general.publish_view"))

	// Overrides apply even before the permission is declared.
	r.Grant(RoleGuest, "webapi.get_page")
	require.True(t, r.May("guest", "webapi.get_page"))
}

func TestList_SortedSection(t *testing.T) {
	r := NewRegistry()
	r.DeclareSection("view", "Views", true)
	r.DeclareSection("general", "General", false)
	r.Declare("view.zeta", "Zeta", "", nil)
	r.Declare("view.alpha", "Alpha", "", nil)
	r.Declare("general.b", "B", "", nil)
	r.Declare("general.a", "A", "", nil)

	views := r.List("view")
	require.Len(t, views, 2)
	require.Equal(t, "Alpha", views[0].Title)

	general := r.List("general")
	require.Equal(t, "general.b", general[0].ID)

	sections := r.Sections()
	require.Equal(t, "view", sections[0].Name)
	require.Equal(t, "general", sections[1].Name)
}

func TestUsers_Sorted(t *testing.T) {
	r := NewRegistry()
	r.SetUserRoles("zed", RoleUser)
	r.SetUserRoles("amy", RoleAdmin)

	require.Equal(t, []string{"amy", "zed"}, r.Users())
	require.Equal(t, []string{RoleAdmin}, r.UserRoles("amy"))
}
