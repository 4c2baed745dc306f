package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"realtyhub/internal/middleware"
	"realtyhub/internal/models"
	"realtyhub/internal/service"
)

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func respondPage(c *gin.Context, data any, page models.Page, total int) {
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: models.TotalPages(total, page.Limit),
		},
	})
}

func respondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// statusFor maps a service error to its HTTP status. Provider failures are
// internal unless the provider explained the rejection.
func statusFor(err error) int {
	var ue *service.UpstreamError
	if errors.As(err, &ue) && ue.Rejected() {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail converts err into the response and logs it. It is the only place a
// handler error is logged.
func (h *HandlerSet) fail(c *gin.Context, op string, err error) {
	h.failWith(c, op, statusFor(err), err)
}

func (h *HandlerSet) failWith(c *gin.Context, op string, status int, err error) {
	var event *zerolog.Event
	switch {
	case status >= http.StatusInternalServerError:
		event = h.log.Error()
	case status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusTooManyRequests:
		event = h.log.Warn()
	default:
		event = h.log.Debug()
	}
	event = event.Err(err).Str("op", op).Str("request_id", middleware.RequestIDFrom(c)).Int("status", status)
	if p, ok := middleware.PrincipalFrom(c); ok {
		event = event.Str("user_id", p.ID)
	}
	event.Msg("request failed")

	body := gin.H{"error": publicMessage(status, err)}
	var rl *service.RateLimitError
	if errors.As(err, &rl) {
		secs := rl.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(secs))
		body["retryAfter"] = secs
	}
	c.AbortWithStatusJSON(status, body)
}

// publicMessage hides internal detail on server-side failures.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var ue *service.UpstreamError
	if errors.As(err, &ue) {
		return ue.Error()
	}
	return err.Error()
}

func (h *HandlerSet) bindJSON(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindBodyWith(dst, binding.JSON); err != nil {
		h.failWith(c, op, http.StatusBadRequest, &service.ValidationError{Message: "invalid JSON body"})
		return false
	}
	return true
}

// resourceID accepts /resource/:id as well as /resource?id=.
func resourceID(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("id")); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("id"))
}

func (h *HandlerSet) requireID(c *gin.Context, op string) (string, bool) {
	id := resourceID(c)
	if id == "" {
		h.failWith(c, op, http.StatusBadRequest, &service.ValidationError{Field: "id", Message: "is required"})
		return "", false
	}
	return id, true
}

func pageFrom(c *gin.Context, def int) models.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return service.NormalizePage(page, limit, def)
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &service.ValidationError{Field: key, Message: "must be a number"}
	}
	return &v, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &service.ValidationError{Field: key, Message: "must be an integer"}
	}
	return &v, nil
}

func queryBool(c *gin.Context, key string) (bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
