package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
	"realtyhub/internal/rbac"
	"realtyhub/internal/security"
)

// AdminSpec describes the bootstrap account created by the migrate CLI.
type AdminSpec struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

// EnsureAdmin creates the account, or resets the password and role of an
// existing active account with the same email. It reports whether a row was
// inserted.
func (m *Manager) EnsureAdmin(ctx context.Context, spec AdminSpec) (string, bool, error) {
	spec.Email = strings.TrimSpace(spec.Email)
	if spec.Email == "" || strings.TrimSpace(spec.Name) == "" {
		return "", false, errors.New("name and email are required")
	}
	if spec.Role == "" {
		spec.Role = models.RoleSuperAdmin
	}
	if _, err := rbac.ParseRole(string(spec.Role)); err != nil {
		return "", false, err
	}
	if err := security.ValidatePasswordStrength(spec.Password); err != nil {
		return "", false, err
	}
	hash, err := security.HashPassword(spec.Password)
	if err != nil {
		return "", false, fmt.Errorf("hash password: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM admin_users WHERE email = $1 AND is_active`, spec.Email,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = ids.New()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO admin_users (id, name, email, password_hash, role, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		`, id, spec.Name, spec.Email, string(hash), string(spec.Role))
		if err != nil {
			return "", false, err
		}
		return id, true, tx.Commit()
	case err != nil:
		return "", false, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE admin_users SET name = $2, password_hash = $3, role = $4, updated_at = NOW()
		WHERE id = $1
	`, id, spec.Name, string(hash), string(spec.Role))
	if err != nil {
		return "", false, err
	}
	return id, false, tx.Commit()
}
