package models

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleEditor     UserRole = "editor"
	RoleViewer     UserRole = "viewer"
)

// User is an administrative account. Deletion is modeled as Active=false.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         UserRole
	Active       bool
	LastLoginAt  *time.Time
	CreatedBy    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Grant is an explicit per-user permission on top of the role defaults.
type Grant struct {
	UserID       string
	PermissionID string
	GrantedBy    *string
	GrantedAt    time.Time
}
