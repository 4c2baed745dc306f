package rbac

import (
	"context"
	"time"

	"realtyhub/internal/models"
)

// Principal is the authenticated caller as resolved from live user state.
type Principal struct {
	ID          string
	Name        string
	Email       string
	Role        models.UserRole
	Permissions Set

	TokenID        string
	TokenExpiresAt time.Time
}

// EffectivePermissions is the union of the role defaults and explicit grants.
func EffectivePermissions(role models.UserRole, grants []models.Grant) Set {
	set := DefaultPermissionsFor(role)
	for _, g := range grants {
		set.Add(g.PermissionID)
	}
	return set
}

func Resolve(user models.User, grants []models.Grant) Principal {
	return Principal{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: EffectivePermissions(user.Role, grants),
	}
}

func (p Principal) IsSuperAdmin() bool {
	return p.Role == models.RoleSuperAdmin
}

// Allows reports whether the principal may perform the permission. super_admin
// passes every check, including permissions added to the catalog later.
func (p Principal) Allows(permission string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return p.Permissions.Has(permission)
}

func (p Principal) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Outranks reports whether the principal may assign or manage the given role.
func (p Principal) Outranks(role models.UserRole) bool {
	if p.IsSuperAdmin() {
		return true
	}
	return Rank(p.Role) > Rank(role)
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
