package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/internal/cache"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/ratelimit"
	"realtyhub/internal/security"
)

func TestLoginReturnsRoleDefaults(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "u1", "admin@example.com", "secret123", models.RoleAdmin)

	session, err := e.auth.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, e.clock.Now().Add(24*time.Hour), session.ExpiresAt)
	assert.True(t, session.Principal.Permissions.Equal(rbac.DefaultPermissionsFor(models.RoleAdmin)))
	require.NotNil(t, session.User.LastLoginAt)

	stored, err := e.stores.Users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, e.clock.Now(), *stored.LastLoginAt)
}

func TestLoginFailuresDoNotRevealAccounts(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "u1", "admin@example.com", "secret123", models.RoleAdmin)
	inactive := e.seedUser(t, "u2", "gone@example.com", "secret123", models.RoleEditor)
	inactive.Active = false
	require.NoError(t, e.stores.Users.Update(context.Background(), inactive))

	cases := []LoginInput{
		{Email: "admin@example.com", Password: "wrong-pass1"},
		{Email: "nobody@example.com", Password: "secret123"},
		{Email: "gone@example.com", Password: "secret123"},
		{Email: "ADMIN@example.com", Password: "secret123"},
	}
	for _, in := range cases {
		_, err := e.auth.Login(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidCredentials, in.Email)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestLoginValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Login(context.Background(), LoginInput{Email: "not-an-email", Password: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestLoginThrottle(t *testing.T) {
	throttle, err := ratelimit.NewKeyedThrottle(0.1, 2, 100)
	require.NoError(t, err)
	e := newEnv(t, WithLoginThrottle(throttle))
	e.seedUser(t, "u1", "admin@example.com", "secret123", models.RoleAdmin)

	for i := 0; i < 2; i++ {
		_, err := e.auth.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "bad-pass1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = e.auth.Login(context.Background(), LoginInput{Email: "Admin@Example.com", Password: "secret123"})
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 10, rl.RetryAfterSeconds())
}

func TestRegisterCreatesViewer(t *testing.T) {
	e := newEnv(t)

	session, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, session.User.Role)
	assert.True(t, session.Principal.Permissions.Equal(rbac.DefaultPermissionsFor(models.RoleViewer)))

	principal, err := e.auth.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, principal.ID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.seedUser(t, "u1", "taken@example.com", "secret123", models.RoleEditor)

	_, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "Copy", Email: "taken@example.com", Password: "abc123",
	})
	assert.ErrorIs(t, err, ErrConflict)

	users, total, err := e.stores.Users.List(context.Background(), models.UserFilter{}, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "abcdef",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)
}

func TestAuthenticateUsesLiveRole(t *testing.T) {
	e := newEnv(t)
	user := e.seedUser(t, "u1", "ed@example.com", "secret123", models.RoleAdmin)
	session, err := e.auth.Login(context.Background(), LoginInput{Email: user.Email, Password: "secret123"})
	require.NoError(t, err)
	require.True(t, session.Principal.Allows(rbac.PropertiesDelete))

	user.Role = models.RoleViewer
	require.NoError(t, e.stores.Users.Update(context.Background(), user))

	principal, err := e.auth.Authenticate(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, principal.Role)
	assert.False(t, principal.Allows(rbac.PropertiesDelete))
}

func TestAuthenticateRejectsDeactivatedUser(t *testing.T) {
	e := newEnv(t)
	user := e.seedUser(t, "u1", "ed@example.com", "secret123", models.RoleEditor)
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	user.Active = false
	require.NoError(t, e.stores.Users.Update(context.Background(), user))

	_, err = e.auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateExpiryBoundary(t *testing.T) {
	e := newEnv(t)
	user := e.seedUser(t, "u1", "ed@example.com", "secret123", models.RoleEditor)
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	e.clock.Advance(23*time.Hour + 59*time.Minute)
	_, err = e.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)

	e.clock.Advance(time.Minute + time.Second)
	_, err = e.auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, err, security.ErrTokenExpired)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	e := newEnv(t)
	for _, token := range []string{"", "abc.def.ghi"} {
		_, err := e.auth.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestAuthenticateAddsGrants(t *testing.T) {
	e := newEnv(t)
	user := e.seedUser(t, "u1", "v@example.com", "secret123", models.RoleViewer)
	_, err := e.stores.Grants.Grant(context.Background(), models.Grant{UserID: user.ID, PermissionID: rbac.PropertiesDelete})
	require.NoError(t, err)
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	principal, err := e.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	want := rbac.DefaultPermissionsFor(models.RoleViewer)
	want.Add(rbac.PropertiesDelete)
	assert.True(t, principal.Permissions.Equal(want))
}

func TestLogoutRevokesWhenDenylistConfigured(t *testing.T) {
	denylist := cache.NewMemoryDenylist(100, security.DefaultTokenTTL)
	e := newEnv(t, WithDenylist(denylist))
	user := e.seedUser(t, "u1", "ed@example.com", "secret123", models.RoleEditor)
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	principal, err := e.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, e.auth.Logout(context.Background(), principal))

	_, err = e.auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogoutWithoutDenylistIsClientSide(t *testing.T) {
	e := newEnv(t)
	user := e.seedUser(t, "u1", "ed@example.com", "secret123", models.RoleEditor)
	token, _, err := e.tokens.Issue(user)
	require.NoError(t, err)

	principal, err := e.auth.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, e.auth.Logout(context.Background(), principal))
	assert.False(t, e.auth.RevocationEnabled())

	_, err = e.auth.Authenticate(context.Background(), token)
	assert.NoError(t, err)
}
