package rbac

import (
	"errors"
	"fmt"

	"realtyhub/internal/models"
)

var ErrUnknownRole = errors.New("unknown role")

var roleDefaults = map[models.UserRole][]string{
	models.RoleAdmin: {
		PropertiesView, PropertiesCreate, PropertiesEdit, PropertiesDelete,
		AgentsView, AgentsCreate, AgentsEdit, AgentsDelete,
		MessagesView, MessagesRespond, MessagesDelete,
		UsersView, UsersCreate, UsersEdit,
		SettingsView,
	},
	models.RoleEditor: {
		PropertiesView, PropertiesCreate, PropertiesEdit,
		AgentsView, AgentsEdit,
		MessagesView, MessagesRespond,
	},
	models.RoleViewer: {
		PropertiesView,
		AgentsView,
		MessagesView,
	},
}

var roleRank = map[models.UserRole]int{
	models.RoleViewer:     1,
	models.RoleEditor:     2,
	models.RoleAdmin:      3,
	models.RoleSuperAdmin: 4,
}

// Roles lists the fixed roles from most to least privileged.
func Roles() []models.UserRole {
	return []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleEditor, models.RoleViewer}
}

func ParseRole(value string) (models.UserRole, error) {
	role := models.UserRole(value)
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
	return role, nil
}

// Rank orders roles by privilege. Unknown roles rank 0.
func Rank(role models.UserRole) int {
	return roleRank[role]
}

// DefaultPermissionsFor returns a fresh set of the permissions a role grants without
// explicit grants. For super_admin this is the whole catalog as it is known now;
// authorization checks must not rely on it and short-circuit on the role instead.
func DefaultPermissionsFor(role models.UserRole) Set {
	if role == models.RoleSuperAdmin {
		s := make(Set, len(catalog))
		for _, p := range catalog {
			s.Add(p.ID)
		}
		return s
	}
	return NewSet(roleDefaults[role]...)
}

// Validate checks that every role default references a catalog permission.
func Validate() error {
	for role, perms := range roleDefaults {
		if _, ok := roleRank[role]; !ok {
			return fmt.Errorf("%w: %q has defaults", ErrUnknownRole, role)
		}
		for _, id := range perms {
			if _, ok := catalogIndex[id]; !ok {
				return fmt.Errorf("role %s references unknown permission %q", role, id)
			}
		}
	}
	return nil
}
