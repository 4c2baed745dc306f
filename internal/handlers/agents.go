package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/service"
)

func (h *HandlerSet) GetAgents(c *gin.Context) {
	if id := resourceID(c); id != "" {
		a, err := h.svc.Agents.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, "agents.get", err)
			return
		}
		respondData(c, http.StatusOK, newAgentDTO(a))
		return
	}
	agents, err := h.svc.Agents.List(c.Request.Context())
	if err != nil {
		h.fail(c, "agents.list", err)
		return
	}
	respondData(c, http.StatusOK, mapSlice(agents, newAgentDTO))
}

func (h *HandlerSet) CreateAgent(c *gin.Context) {
	var input service.AgentInput
	if !h.bindJSON(c, "agents.create", &input) {
		return
	}
	a, err := h.svc.Agents.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "agents.create", err)
		return
	}
	respondData(c, http.StatusCreated, newAgentDTO(a))
}

func (h *HandlerSet) UpdateAgent(c *gin.Context) {
	id, ok := h.requireID(c, "agents.update")
	if !ok {
		return
	}
	var patch service.AgentPatch
	if !h.bindJSON(c, "agents.update", &patch) {
		return
	}
	a, err := h.svc.Agents.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.fail(c, "agents.update", err)
		return
	}
	respondData(c, http.StatusOK, newAgentDTO(a))
}

func (h *HandlerSet) DeleteAgent(c *gin.Context) {
	id, ok := h.requireID(c, "agents.delete")
	if !ok {
		return
	}
	if err := h.svc.Agents.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "agents.delete", err)
		return
	}
	respondMessage(c, http.StatusOK, "agent deleted")
}
