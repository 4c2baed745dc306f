package models

type PermissionCategory string

const (
	CategoryProperties PermissionCategory = "properties"
	CategoryUsers      PermissionCategory = "users"
	CategoryAgents     PermissionCategory = "agents"
	CategoryMessages   PermissionCategory = "messages"
	CategorySettings   PermissionCategory = "settings"
)

type Permission struct {
	ID          string
	Name        string
	Description string
	Category    PermissionCategory
}
