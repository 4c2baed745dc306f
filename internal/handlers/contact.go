package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/service"
)

func (h *HandlerSet) GetMessages(c *gin.Context) {
	if id := resourceID(c); id != "" {
		m, err := h.svc.Contacts.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, "contact.get", err)
			return
		}
		respondData(c, http.StatusOK, newMessageDTO(m))
		return
	}

	filter := models.ContactFilter{
		Status:     models.MessageStatus(strings.TrimSpace(c.Query("status"))),
		PropertyID: strings.TrimSpace(c.Query("propertyId")),
		AgentID:    strings.TrimSpace(c.Query("agentId")),
	}
	page := pageFrom(c, service.DefaultPageLimit)
	items, total, err := h.svc.Contacts.List(c.Request.Context(), filter, page)
	if err != nil {
		h.fail(c, "contact.list", err)
		return
	}
	respondPage(c, mapSlice(items, newMessageDTO), page, total)
}

func (h *HandlerSet) SubmitMessage(c *gin.Context) {
	var input service.ContactInput
	if !h.bindJSON(c, "contact.submit", &input) {
		return
	}
	m, err := h.svc.Contacts.Submit(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "contact.submit", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "message sent", "data": newMessageDTO(m)})
}

type messageStatusRequest struct {
	Status string `json:"status"`
}

func (h *HandlerSet) UpdateMessage(c *gin.Context) {
	id, ok := h.requireID(c, "contact.update")
	if !ok {
		return
	}
	var req messageStatusRequest
	if !h.bindJSON(c, "contact.update", &req) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	m, err := h.svc.Contacts.UpdateStatus(c.Request.Context(), actor, id, models.MessageStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.fail(c, "contact.update", err)
		return
	}
	respondData(c, http.StatusOK, newMessageDTO(m))
}

func (h *HandlerSet) DeleteMessage(c *gin.Context) {
	id, ok := h.requireID(c, "contact.delete")
	if !ok {
		return
	}
	if err := h.svc.Contacts.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "contact.delete", err)
		return
	}
	respondMessage(c, http.StatusOK, "message deleted")
}
