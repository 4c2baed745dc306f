package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/service"
)

// GetUsers serves both the list and, with an id, a single user.
func (h *HandlerSet) GetUsers(c *gin.Context) {
	if id := resourceID(c); id != "" {
		detail, err := h.svc.Users.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, "users.get", err)
			return
		}
		respondData(c, http.StatusOK, newUserDetailDTO(detail))
		return
	}

	filter := models.UserFilter{
		Role:   models.UserRole(strings.TrimSpace(c.Query("role"))),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if active, ok := queryBool(c, "active"); ok && active {
		filter.ActiveOnly = true
	}
	page := pageFrom(c, service.DefaultPageLimit)
	users, total, err := h.svc.Users.List(c.Request.Context(), filter, page)
	if err != nil {
		h.fail(c, "users.list", err)
		return
	}
	respondPage(c, mapSlice(users, newUserDTO), page, total)
}

func (h *HandlerSet) CreateUser(c *gin.Context) {
	var input service.CreateUserInput
	if !h.bindJSON(c, "users.create", &input) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	user, err := h.svc.Users.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.fail(c, "users.create", err)
		return
	}
	respondData(c, http.StatusCreated, newUserDTO(user))
}

// UpdateUser lets callers edit their own profile; editing anyone else needs
// users.edit.
func (h *HandlerSet) UpdateUser(c *gin.Context) {
	id, ok := h.requireID(c, "users.update")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	if actor.ID != id && !actor.Allows(rbac.UsersEdit) {
		h.fail(c, "users.update", fmt.Errorf("%w: insufficient permission", service.ErrForbidden))
		return
	}

	var input service.UpdateUserInput
	if !h.bindJSON(c, "users.update", &input) {
		return
	}
	user, err := h.svc.Users.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		h.fail(c, "users.update", err)
		return
	}
	respondData(c, http.StatusOK, newUserDTO(user))
}

func (h *HandlerSet) DeactivateUser(c *gin.Context) {
	id, ok := h.requireID(c, "users.deactivate")
	if !ok {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	if err := h.svc.Users.Deactivate(c.Request.Context(), actor, id); err != nil {
		h.fail(c, "users.deactivate", err)
		return
	}
	respondMessage(c, http.StatusOK, "user deactivated")
}

type grantRequest struct {
	Permission string `json:"permission"`
}

func (h *HandlerSet) GrantPermission(c *gin.Context) {
	var req grantRequest
	if !h.bindJSON(c, "users.grant", &req) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	created, err := h.svc.Users.Grant(c.Request.Context(), actor, c.Param("id"), strings.TrimSpace(req.Permission))
	if err != nil {
		h.fail(c, "users.grant", err)
		return
	}
	if !created {
		respondMessage(c, http.StatusOK, "permission already granted")
		return
	}
	respondMessage(c, http.StatusCreated, "permission granted")
}

func (h *HandlerSet) RevokePermission(c *gin.Context) {
	actor, _ := middleware.PrincipalFrom(c)
	removed, err := h.svc.Users.Revoke(c.Request.Context(), actor, c.Param("id"), c.Param("permission"))
	if err != nil {
		h.fail(c, "users.revoke", err)
		return
	}
	if !removed {
		respondMessage(c, http.StatusOK, "permission was not granted")
		return
	}
	respondMessage(c, http.StatusOK, "permission revoked")
}

type permissionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type categoryDTO struct {
	Category    string          `json:"category"`
	Permissions []permissionDTO `json:"permissions"`
}

// ListPermissions returns the catalog grouped by category plus each role's
// defaults.
func (h *HandlerSet) ListPermissions(c *gin.Context) {
	grouped := rbac.ByCategory()
	categories := make([]categoryDTO, 0, len(grouped))
	for _, cat := range rbac.Categories() {
		categories = append(categories, categoryDTO{
			Category: string(cat),
			Permissions: mapSlice(grouped[cat], func(p models.Permission) permissionDTO {
				return permissionDTO{ID: p.ID, Name: p.Name, Description: p.Description}
			}),
		})
	}

	roles := make(map[string][]string, len(rbac.Roles()))
	for _, role := range rbac.Roles() {
		roles[string(role)] = rbac.DefaultPermissionsFor(role).List()
	}
	respondData(c, http.StatusOK, gin.H{"categories": categories, "roles": roles})
}
