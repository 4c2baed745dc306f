package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/internal/models"
)

func TestCatalogOrderAndSize(t *testing.T) {
	perms := Catalog()
	require.Len(t, perms, 17)
	assert.Equal(t, PropertiesView, perms[0].ID)
	assert.Equal(t, SettingsEdit, perms[len(perms)-1].ID)

	seen := map[string]bool{}
	for _, p := range perms {
		assert.False(t, seen[p.ID], "duplicate %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Name)
		assert.Contains(t, Categories(), p.Category)
	}

	perms[0].ID = "mutated"
	assert.Equal(t, PropertiesView, Catalog()[0].ID, "Catalog must return a copy")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
}

func TestDefaultPermissionsFor(t *testing.T) {
	tests := []struct {
		role    models.UserRole
		size    int
		has     []string
		missing []string
	}{
		{models.RoleAdmin, 15, []string{PropertiesDelete, UsersEdit, SettingsView}, []string{UsersDelete, SettingsEdit}},
		{models.RoleEditor, 7, []string{PropertiesEdit, AgentsEdit, MessagesRespond}, []string{PropertiesDelete, AgentsCreate, UsersView}},
		{models.RoleViewer, 3, []string{PropertiesView, AgentsView, MessagesView}, []string{PropertiesCreate}},
		{models.RoleSuperAdmin, 17, []string{UsersDelete, SettingsEdit}, nil},
		{models.UserRole("ghost"), 0, nil, []string{PropertiesView}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			set := DefaultPermissionsFor(tt.role)
			assert.Len(t, set, tt.size)
			for _, id := range tt.has {
				assert.True(t, set.Has(id), id)
			}
			for _, id := range tt.missing {
				assert.False(t, set.Has(id), id)
			}
		})
	}
}

func TestDefaultPermissionsForReturnsFreshSet(t *testing.T) {
	set := DefaultPermissionsFor(models.RoleViewer)
	set.Add(UsersDelete)
	assert.False(t, DefaultPermissionsFor(models.RoleViewer).Has(UsersDelete))
}

func TestEffectivePermissionsUnion(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleEditor, models.RoleViewer} {
		grants := []models.Grant{{PermissionID: PropertiesDelete}, {PermissionID: SettingsEdit}}
		got := EffectivePermissions(role, grants)

		want := DefaultPermissionsFor(role).Union(NewSet(PropertiesDelete, SettingsEdit))
		assert.True(t, want.Equal(got), "role %s", role)
	}
}

func TestSuperAdminPassesUnknownPermissions(t *testing.T) {
	p := Resolve(models.User{ID: "u1", Role: models.RoleSuperAdmin}, nil)
	assert.True(t, p.Allows("reports.export"))
	assert.True(t, p.Allows(UsersDelete))

	admin := Resolve(models.User{ID: "u2", Role: models.RoleAdmin}, nil)
	assert.False(t, admin.Allows("reports.export"))
	assert.False(t, admin.Allows(UsersDelete))
}

func TestGrantExtendsRole(t *testing.T) {
	p := Resolve(models.User{ID: "u1", Role: models.RoleViewer}, []models.Grant{{UserID: "u1", PermissionID: PropertiesDelete}})
	assert.True(t, p.Allows(PropertiesDelete))
	assert.False(t, p.Allows(PropertiesCreate))
}

func TestParseRoleAndRank(t *testing.T) {
	role, err := ParseRole("editor")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrUnknownRole)

	assert.Greater(t, Rank(models.RoleSuperAdmin), Rank(models.RoleAdmin))
	assert.Greater(t, Rank(models.RoleAdmin), Rank(models.RoleEditor))
	assert.Greater(t, Rank(models.RoleEditor), Rank(models.RoleViewer))
	assert.Zero(t, Rank("owner"))
}

func TestOutranks(t *testing.T) {
	admin := Principal{Role: models.RoleAdmin}
	assert.True(t, admin.Outranks(models.RoleEditor))
	assert.False(t, admin.Outranks(models.RoleAdmin))
	assert.False(t, admin.Outranks(models.RoleSuperAdmin))

	root := Principal{Role: models.RoleSuperAdmin}
	assert.True(t, root.Outranks(models.RoleSuperAdmin))
}

func TestSetListOrder(t *testing.T) {
	s := NewSet("zeta.custom", MessagesView, PropertiesView, "alpha.custom")
	assert.Equal(t, []string{PropertiesView, MessagesView, "alpha.custom", "zeta.custom"}, s.List())
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: "u1", Role: models.RoleEditor})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.ID)
	assert.True(t, p.HasRole(models.RoleAdmin, models.RoleEditor))
	assert.False(t, p.HasRole(models.RoleAdmin))
}
