// Package rbac holds the static permission catalog, the per-role defaults and the
// resolution of a caller's effective permission set.
package rbac

import "realtyhub/internal/models"

const (
	PropertiesView   = "properties.view"
	PropertiesCreate = "properties.create"
	PropertiesEdit   = "properties.edit"
	PropertiesDelete = "properties.delete"

	UsersView   = "users.view"
	UsersCreate = "users.create"
	UsersEdit   = "users.edit"
	UsersDelete = "users.delete"

	AgentsView   = "agents.view"
	AgentsCreate = "agents.create"
	AgentsEdit   = "agents.edit"
	AgentsDelete = "agents.delete"

	MessagesView    = "messages.view"
	MessagesRespond = "messages.respond"
	MessagesDelete  = "messages.delete"

	SettingsView = "settings.view"
	SettingsEdit = "settings.edit"
)

var catalog = []models.Permission{
	{ID: PropertiesView, Name: "View properties", Description: "Can list and inspect properties", Category: models.CategoryProperties},
	{ID: PropertiesCreate, Name: "Create properties", Description: "Can add new properties", Category: models.CategoryProperties},
	{ID: PropertiesEdit, Name: "Edit properties", Description: "Can edit existing properties", Category: models.CategoryProperties},
	{ID: PropertiesDelete, Name: "Delete properties", Description: "Can remove properties", Category: models.CategoryProperties},

	{ID: UsersView, Name: "View users", Description: "Can list administrative users", Category: models.CategoryUsers},
	{ID: UsersCreate, Name: "Create users", Description: "Can provision administrative users", Category: models.CategoryUsers},
	{ID: UsersEdit, Name: "Edit users", Description: "Can edit users and their permissions", Category: models.CategoryUsers},
	{ID: UsersDelete, Name: "Delete users", Description: "Can deactivate administrative users", Category: models.CategoryUsers},

	{ID: AgentsView, Name: "View agents", Description: "Can list agents", Category: models.CategoryAgents},
	{ID: AgentsCreate, Name: "Create agents", Description: "Can add new agents", Category: models.CategoryAgents},
	{ID: AgentsEdit, Name: "Edit agents", Description: "Can edit existing agents", Category: models.CategoryAgents},
	{ID: AgentsDelete, Name: "Delete agents", Description: "Can remove agents", Category: models.CategoryAgents},

	{ID: MessagesView, Name: "View messages", Description: "Can read contact messages", Category: models.CategoryMessages},
	{ID: MessagesRespond, Name: "Respond to messages", Description: "Can change the status of contact messages", Category: models.CategoryMessages},
	{ID: MessagesDelete, Name: "Delete messages", Description: "Can remove contact messages", Category: models.CategoryMessages},

	{ID: SettingsView, Name: "View settings", Description: "Can read system settings and analytics", Category: models.CategorySettings},
	{ID: SettingsEdit, Name: "Edit settings", Description: "Can change system settings and moderate testimonials", Category: models.CategorySettings},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, p := range catalog {
		idx[p.ID] = i
	}
	return idx
}()

// Catalog returns every known permission in declaration order.
func Catalog() []models.Permission {
	out := make([]models.Permission, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(id string) (models.Permission, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return models.Permission{}, false
	}
	return catalog[i], true
}

func Categories() []models.PermissionCategory {
	return []models.PermissionCategory{
		models.CategoryProperties,
		models.CategoryUsers,
		models.CategoryAgents,
		models.CategoryMessages,
		models.CategorySettings,
	}
}

// ByCategory groups the catalog, keeping declaration order inside each group.
func ByCategory() map[models.PermissionCategory][]models.Permission {
	out := make(map[models.PermissionCategory][]models.Permission, 5)
	for _, p := range catalog {
		out[p.Category] = append(out[p.Category], p)
	}
	return out
}
