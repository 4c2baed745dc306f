package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type UserRepository struct {
	conn
}

const userColumns = `id, name, email, password_hash, role, is_active, last_login, created_by, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		hash string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&hash,
		&user.Role,
		&user.Active,
		&user.LastLoginAt,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, mapError(err)
	}
	user.PasswordHash = []byte(hash)
	return user, nil
}

// Create inserts a user. A second active user with the same email violates
// admin_users_active_email and returns ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO admin_users (
			id, name, email, password_hash, role, is_active, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		string(user.PasswordHash),
		user.Role,
		user.Active,
		user.CreatedBy,
	)
	return mapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM admin_users WHERE id = $1`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// FindActiveByEmail matches the email exactly as stored.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM admin_users WHERE email = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM admin_users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		userColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE admin_users
		SET name = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Email, string(user.PasswordHash), user.Role, user.Active)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE admin_users SET last_login = $2 WHERE id = $1`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
