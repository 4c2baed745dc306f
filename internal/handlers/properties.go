package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/service"
)

func (h *HandlerSet) GetProperties(c *gin.Context) {
	if id := resourceID(c); id != "" {
		p, err := h.svc.Properties.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, "properties.get", err)
			return
		}
		respondData(c, http.StatusOK, newPropertyDTO(p))
		return
	}

	filter, err := propertyFilter(c)
	if err != nil {
		h.fail(c, "properties.list", err)
		return
	}
	page := pageFrom(c, service.PropertyPageLimit)
	items, total, err := h.svc.Properties.List(c.Request.Context(), filter, page)
	if err != nil {
		h.fail(c, "properties.list", err)
		return
	}
	respondPage(c, mapSlice(items, newPropertyDTO), page, total)
}

func propertyFilter(c *gin.Context) (models.PropertyFilter, error) {
	filter := models.PropertyFilter{
		Type: models.PropertyType(strings.TrimSpace(c.Query("type"))),
		City: strings.TrimSpace(c.Query("city")),
	}
	var err error
	if filter.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.Bedrooms, err = queryInt(c, "bedrooms"); err != nil {
		return filter, err
	}
	filter.Featured, _ = queryBool(c, "featured")
	return filter, nil
}

func (h *HandlerSet) CreateProperty(c *gin.Context) {
	var input service.PropertyInput
	if !h.bindJSON(c, "properties.create", &input) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	p, err := h.svc.Properties.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.fail(c, "properties.create", err)
		return
	}
	respondData(c, http.StatusCreated, newPropertyDTO(p))
}

func (h *HandlerSet) UpdateProperty(c *gin.Context) {
	id, ok := h.requireID(c, "properties.update")
	if !ok {
		return
	}
	var patch service.PropertyPatch
	if !h.bindJSON(c, "properties.update", &patch) {
		return
	}
	p, err := h.svc.Properties.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "properties.update", err)
		return
	}
	respondData(c, http.StatusOK, newPropertyDTO(p))
}

func (h *HandlerSet) DeleteProperty(c *gin.Context) {
	id, ok := h.requireID(c, "properties.delete")
	if !ok {
		return
	}
	if err := h.svc.Properties.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "properties.delete", err)
		return
	}
	respondMessage(c, http.StatusOK, "property deleted")
}
