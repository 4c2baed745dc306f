package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/service"
)

func (h *HandlerSet) GetAnalytics(c *gin.Context) {
	ctx := c.Request.Context()
	days, err := queryInt(c, "days")
	if err != nil {
		h.fail(c, "analytics", err)
		return
	}
	n := 0
	if days != nil {
		n = *days
	}

	var data any
	switch kind := strings.TrimSpace(c.DefaultQuery("type", "dashboard")); kind {
	case "dashboard":
		data, err = h.svc.Analytics.Dashboard(ctx)
	case "properties":
		data, err = h.svc.Analytics.Properties(ctx)
	case "views":
		data, err = h.svc.Analytics.Views(ctx, n)
	case "messages":
		data, err = h.svc.Analytics.Messages(ctx, n)
	default:
		err = &service.ValidationError{Field: "type", Message: "must be one of dashboard, properties, views, messages"}
	}
	if err != nil {
		h.fail(c, "analytics", err)
		return
	}
	respondData(c, http.StatusOK, data)
}

// TrackView answers 201 for a recorded view and 200 for a repeat.
func (h *HandlerSet) TrackView(c *gin.Context) {
	var input service.TrackViewInput
	if !h.bindJSON(c, "analytics.track", &input) {
		return
	}
	input.ClientIP = c.ClientIP()
	input.UserAgent = c.GetHeader("User-Agent")

	recorded, err := h.svc.Analytics.TrackView(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "analytics.track", err)
		return
	}
	if !recorded {
		respondMessage(c, http.StatusOK, "view already recorded")
		return
	}
	respondMessage(c, http.StatusCreated, "view recorded")
}
