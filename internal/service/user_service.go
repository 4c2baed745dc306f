package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/security"
)

type UserService struct {
	users  UserStore
	grants GrantStore
	now    func() time.Time
	log    zerolog.Logger
}

func NewUserService(users UserStore, grants GrantStore, log zerolog.Logger) *UserService {
	return &UserService{users: users, grants: grants, now: time.Now, log: log}
}

// UserDetail is a user with its explicit grants and resulting permissions.
type UserDetail struct {
	User        models.User
	Grants      []models.Grant
	Permissions rbac.Set
}

func (s *UserService) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, int, error) {
	if filter.Role != "" {
		if _, err := rbac.ParseRole(string(filter.Role)); err != nil {
			return nil, 0, invalid("role", "unknown role %q", filter.Role)
		}
	}
	users, total, err := s.users.List(ctx, filter, page)
	if err != nil {
		return nil, 0, storeError(err, "users")
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, id string) (UserDetail, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return UserDetail{}, storeError(err, "user")
	}
	grants, err := s.grants.ListForUser(ctx, id)
	if err != nil {
		return UserDetail{}, storeError(err, "permissions")
	}
	return UserDetail{
		User:        user,
		Grants:      grants,
		Permissions: rbac.EffectivePermissions(user.Role, grants),
	}, nil
}

type CreateUserInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

func (s *UserService) Create(ctx context.Context, actor rbac.Principal, input CreateUserInput) (models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return models.User{}, err
	}
	role, err := rbac.ParseRole(input.Role)
	if err != nil {
		return models.User{}, invalid("role", "unknown role %q", input.Role)
	}
	if !actor.Outranks(role) {
		return models.User{}, fmt.Errorf("%w: cannot assign role %s", ErrForbidden, role)
	}
	if err := security.ValidatePasswordStrength(input.Password); err != nil {
		return models.User{}, &ValidationError{Field: "password", Message: err.Error()}
	}
	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedBy:    optionalID(actor.ID),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(storeError(err, "user"), ErrConflict) {
			return models.User{}, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return models.User{}, storeError(err, "user")
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(role)).
		Str("actor_id", actor.ID).
		Msg("user created")

	created, err := s.users.GetByID(ctx, user.ID)
	return created, storeError(err, "user")
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Active   *bool   `json:"isActive"`
}

// Update lets users edit their own profile. Role and active flag changes, and
// any edit of another account, need a strictly higher rank than the target.
func (s *UserService) Update(ctx context.Context, actor rbac.Principal, id string, input UpdateUserInput) (models.User, error) {
	input.Name = trimPtr(input.Name)
	input.Email = trimPtr(input.Email)
	if err := validateInput(input); err != nil {
		return models.User{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storeError(err, "user")
	}

	self := actor.ID == user.ID
	if !self && !actor.Outranks(user.Role) {
		return models.User{}, fmt.Errorf("%w: cannot manage a %s", ErrForbidden, user.Role)
	}

	if input.Role != nil {
		role, err := rbac.ParseRole(*input.Role)
		if err != nil {
			return models.User{}, invalid("role", "unknown role %q", *input.Role)
		}
		if role != user.Role {
			if self {
				return models.User{}, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
			}
			if !actor.Outranks(role) {
				return models.User{}, fmt.Errorf("%w: cannot assign role %s", ErrForbidden, role)
			}
			user.Role = role
		}
	}
	if input.Active != nil && *input.Active != user.Active {
		if self {
			return models.User{}, fmt.Errorf("%w: cannot change your own active state", ErrForbidden)
		}
		user.Active = *input.Active
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Password != nil {
		if err := security.ValidatePasswordStrength(*input.Password); err != nil {
			return models.User{}, &ValidationError{Field: "password", Message: err.Error()}
		}
		hash, err := security.HashPassword(*input.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(storeError(err, "user"), ErrConflict) {
			return models.User{}, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return models.User{}, storeError(err, "user")
	}
	updated, err := s.users.GetByID(ctx, id)
	return updated, storeError(err, "user")
}

// Deactivate is a soft delete. Accounts cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, actor rbac.Principal, id string) error {
	if actor.ID == id {
		return fmt.Errorf("%w: cannot deactivate your own account", ErrForbidden)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err, "user")
	}
	if !actor.Outranks(user.Role) {
		return fmt.Errorf("%w: cannot manage a %s", ErrForbidden, user.Role)
	}
	if !user.Active {
		return nil
	}
	user.Active = false
	if err := s.users.Update(ctx, user); err != nil {
		return storeError(err, "user")
	}
	s.log.Info().Str("user_id", id).Str("actor_id", actor.ID).Msg("user deactivated")
	return nil
}

// Grant adds an explicit permission. Granting twice keeps one record; the
// boolean reports whether a new record was written.
func (s *UserService) Grant(ctx context.Context, actor rbac.Principal, userID, permissionID string) (bool, error) {
	user, err := s.grantTarget(ctx, actor, userID, permissionID)
	if err != nil {
		return false, err
	}
	created, err := s.grants.Grant(ctx, models.Grant{
		UserID:       user.ID,
		PermissionID: permissionID,
		GrantedBy:    optionalID(actor.ID),
		GrantedAt:    s.now().UTC(),
	})
	if err != nil {
		return false, storeError(err, "permission grant")
	}
	if created {
		s.log.Info().Str("user_id", user.ID).Str("permission", permissionID).Str("actor_id", actor.ID).Msg("permission granted")
	}
	return created, nil
}

func (s *UserService) Revoke(ctx context.Context, actor rbac.Principal, userID, permissionID string) (bool, error) {
	user, err := s.grantTarget(ctx, actor, userID, permissionID)
	if err != nil {
		return false, err
	}
	removed, err := s.grants.Revoke(ctx, user.ID, permissionID)
	if err != nil {
		return false, storeError(err, "permission grant")
	}
	if removed {
		s.log.Info().Str("user_id", user.ID).Str("permission", permissionID).Str("actor_id", actor.ID).Msg("permission revoked")
	}
	return removed, nil
}

// grantTarget checks that the permission exists, that the actor holds it and
// outranks the target user.
func (s *UserService) grantTarget(ctx context.Context, actor rbac.Principal, userID, permissionID string) (models.User, error) {
	if _, ok := rbac.Lookup(permissionID); !ok {
		return models.User{}, invalid("permission", "unknown permission %q", permissionID)
	}
	if !actor.Allows(permissionID) {
		return models.User{}, fmt.Errorf("%w: cannot grant a permission you do not hold", ErrForbidden)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, storeError(err, "user")
	}
	if !user.Active {
		return models.User{}, fmt.Errorf("%w: user", ErrNotFound)
	}
	if actor.ID == user.ID || !actor.Outranks(user.Role) {
		return models.User{}, fmt.Errorf("%w: cannot manage permissions of this user", ErrForbidden)
	}
	return user, nil
}
