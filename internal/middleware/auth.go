package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"realtyhub/internal/metrics"
	"realtyhub/internal/rbac"
	"realtyhub/internal/security"
	"realtyhub/internal/service"
)

const principalKey = "principal"

// Authenticator resolves a bearer token to the live caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (rbac.Principal, error)
}

// Auth requires a valid bearer token. The principal is attached to both the
// gin context and the request context.
func Auth(authn Authenticator, log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.AuthFailure("missing_token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		principal, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			status, msg, reason := authFailure(err)
			m.AuthFailure(reason)
			event := log.Warn()
			if status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("authentication failed")
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		attach(c, principal)
		c.Next()
	}
}

// OptionalAuth attaches a principal when a valid token is present and lets the
// request through either way.
func OptionalAuth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c.GetHeader("Authorization")); ok {
			if principal, err := authn.Authenticate(c.Request.Context(), token); err == nil {
				attach(c, principal)
			}
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller attached by Auth or OptionalAuth.
func PrincipalFrom(c *gin.Context) (rbac.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return rbac.Principal{}, false
	}
	p, ok := v.(rbac.Principal)
	return p, ok
}

func attach(c *gin.Context, p rbac.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(rbac.WithPrincipal(c.Request.Context(), p))
}

// BearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authFailure(err error) (status int, msg, reason string) {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired", "expired_token"
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "invalid token or inactive user", "invalid_token"
	case errors.Is(err, service.ErrUpstream):
		return http.StatusInternalServerError, "internal server error", "upstream"
	default:
		return http.StatusInternalServerError, "internal server error", "internal"
	}
}
