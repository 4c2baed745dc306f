package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/service"
)

type authActionRequest struct {
	Action string `json:"action"`
}

type sessionResponse struct {
	User      userDTO   `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newSessionResponse(s service.Session) sessionResponse {
	return sessionResponse{
		User:      sessionUser(s.User, s.Principal),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// AuthAction dispatches POST /auth on the body's action field.
func (h *HandlerSet) AuthAction(c *gin.Context) {
	var req authActionRequest
	if !h.bindJSON(c, "auth", &req) {
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "login":
		h.login(c)
	case "register":
		h.register(c)
	case "verify":
		h.verify(c)
	case "logout":
		h.logout(c)
	default:
		h.failWith(c, "auth", http.StatusBadRequest, &service.ValidationError{Field: "action", Message: "must be one of login, register, verify, logout"})
	}
}

func (h *HandlerSet) login(c *gin.Context) {
	var input service.LoginInput
	if !h.bindJSON(c, "auth.login", &input) {
		return
	}
	session, err := h.svc.Auth.Login(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			h.metrics.AuthFailure("invalid_credentials")
		}
		h.fail(c, "auth.login", err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (h *HandlerSet) register(c *gin.Context) {
	var input service.RegisterInput
	if !h.bindJSON(c, "auth.register", &input) {
		return
	}
	session, err := h.svc.Auth.Register(c.Request.Context(), input)
	if err != nil {
		// Clients of the registration form expect a duplicate email as a 400.
		if errors.Is(err, service.ErrConflict) {
			h.failWith(c, "auth.register", http.StatusBadRequest, err)
			return
		}
		h.fail(c, "auth.register", err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

func (h *HandlerSet) verify(c *gin.Context) {
	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		h.failWith(c, "auth.verify", http.StatusUnauthorized, errors.New("token not provided"))
		return
	}
	user, principal, err := h.svc.Auth.Verify(c.Request.Context(), token)
	if err != nil {
		h.fail(c, "auth.verify", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sessionUser(user, principal)})
}

func (h *HandlerSet) logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		h.failWith(c, "auth.logout", http.StatusUnauthorized, errors.New("token not provided"))
		return
	}
	principal, err := h.svc.Auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.fail(c, "auth.logout", err)
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), principal); err != nil {
		h.fail(c, "auth.logout", err)
		return
	}
	msg := "logged out"
	if !h.svc.Auth.RevocationEnabled() {
		msg = "logged out, discard the token on the client"
	}
	respondMessage(c, http.StatusOK, msg)
}
