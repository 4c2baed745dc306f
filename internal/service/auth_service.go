package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/security"
)

// Denylist records revoked token ids until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LoginThrottle slows repeated attempts against one account.
type LoginThrottle interface {
	Allow(key string) bool
	Interval() time.Duration
}

type AuthService struct {
	users    UserStore
	grants   GrantStore
	tokens   *security.TokenService
	denylist Denylist
	throttle LoginThrottle
	now      func() time.Time
	log      zerolog.Logger
}

type AuthOption func(*AuthService)

// WithDenylist enables server-side logout.
func WithDenylist(d Denylist) AuthOption {
	return func(s *AuthService) { s.denylist = d }
}

func WithLoginThrottle(t LoginThrottle) AuthOption {
	return func(s *AuthService) { s.throttle = t }
}

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAuthService(users UserStore, grants GrantStore, tokens *security.TokenService, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:  users,
		grants: grants,
		tokens: tokens,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) RevocationEnabled() bool {
	return s.denylist != nil
}

// Session is the result of a successful login or registration.
type Session struct {
	User      models.User
	Principal rbac.Principal
	Token     string
	ExpiresAt time.Time
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login never reveals whether the email exists: unknown, inactive and
// wrong-password attempts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (Session, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return Session{}, err
	}

	if s.throttle != nil && !s.throttle.Allow(input.Email) {
		return Session{}, &RateLimitError{RetryAfter: s.throttle.Interval()}
	}

	user, err := s.users.FindActiveByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(storeError(err, "user"), ErrNotFound) {
			burnPasswordCheck(input.Password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, storeError(err, "user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
	}
	if err != nil || !ok {
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.open(ctx, user)
	if err != nil {
		return Session{}, err
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("record last login failed")
	} else {
		session.User.LastLoginAt = &now
	}
	return session, nil
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// Register creates a viewer account. Privileged roles are provisioned by
// user management only.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return Session{}, err
	}
	if err := security.ValidatePasswordStrength(input.Password); err != nil {
		return Session{}, &ValidationError{Field: "password", Message: err.Error()}
	}

	if _, err := s.users.FindActiveByEmail(ctx, input.Email); err == nil {
		return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(storeError(err, "user"), ErrNotFound) {
		return Session{}, storeError(err, "user")
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleViewer,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(storeError(err, "user"), ErrConflict) {
			return Session{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return Session{}, storeError(err, "user")
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return Session{}, storeError(err, "user")
	}
	return s.open(ctx, created)
}

// Authenticate verifies the token and resolves the caller against the live
// user record. Claims in the token are never used for authorization.
func (s *AuthService) Authenticate(ctx context.Context, token string) (rbac.Principal, error) {
	_, principal, err := s.identify(ctx, token)
	return principal, err
}

// Verify is Authenticate plus the live user record, for the verify action.
func (s *AuthService) Verify(ctx context.Context, token string) (models.User, rbac.Principal, error) {
	return s.identify(ctx, token)
}

// Logout denylists the token for the rest of its lifetime. Without a
// denylist it is a no-op and the client discards the token.
func (s *AuthService) Logout(ctx context.Context, principal rbac.Principal) error {
	if s.denylist == nil || principal.TokenID == "" {
		return nil
	}
	ttl := principal.TokenExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, principal.TokenID, ttl); err != nil {
		return fmt.Errorf("%w: revoke token: %w", ErrUpstream, err)
	}
	return nil
}

func (s *AuthService) identify(ctx context.Context, token string) (models.User, rbac.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return models.User{}, rbac.Principal{}, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return models.User{}, rbac.Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return models.User{}, rbac.Principal{}, fmt.Errorf("%w: check revocation: %w", ErrUpstream, err)
		}
		if revoked {
			return models.User{}, rbac.Principal{}, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(storeError(err, "user"), ErrNotFound) {
			return models.User{}, rbac.Principal{}, fmt.Errorf("%w: user not found", ErrUnauthenticated)
		}
		return models.User{}, rbac.Principal{}, storeError(err, "user")
	}
	if !user.Active {
		return models.User{}, rbac.Principal{}, fmt.Errorf("%w: user is inactive", ErrUnauthenticated)
	}

	principal, err := s.resolve(ctx, user)
	if err != nil {
		return models.User{}, rbac.Principal{}, err
	}
	principal.TokenID = claims.ID
	if claims.ExpiresAt != nil {
		principal.TokenExpiresAt = claims.ExpiresAt.Time
	}
	return user, principal, nil
}

func (s *AuthService) open(ctx context.Context, user models.User) (Session, error) {
	principal, err := s.resolve(ctx, user)
	if err != nil {
		return Session{}, err
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		if errors.Is(err, security.ErrInactiveUser) {
			return Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: user, Principal: principal, Token: token, ExpiresAt: expiresAt}, nil
}

// resolve skips the grant lookup for super_admin, whose checks always pass.
func (s *AuthService) resolve(ctx context.Context, user models.User) (rbac.Principal, error) {
	var grants []models.Grant
	if user.Role != models.RoleSuperAdmin {
		var err error
		grants, err = s.grants.ListForUser(ctx, user.ID)
		if err != nil {
			return rbac.Principal{}, storeError(err, "permissions")
		}
	}
	return rbac.Resolve(user, grants), nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// burnPasswordCheck spends the same hashing work as a real verification so
// response timing does not reveal unknown emails.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = security.HashPassword("realtyhub-timing-guard-1")
	})
	_, _ = security.VerifyPassword(password, dummyHash)
}
