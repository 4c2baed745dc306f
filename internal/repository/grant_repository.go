package repository

import (
	"context"

	"realtyhub/internal/models"
)

type GrantRepository struct {
	conn
}

// Grant is idempotent: it reports false when the pair already existed.
func (r *GrantRepository) Grant(ctx context.Context, grant models.Grant) (bool, error) {
	const query = `
		INSERT INTO user_permissions (user_id, permission_id, granted_by, granted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, permission_id) DO NOTHING
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, grant.UserID, grant.PermissionID, grant.GrantedBy)
	if err != nil {
		return false, mapError(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *GrantRepository) Revoke(ctx context.Context, userID, permissionID string) (bool, error) {
	const query = `DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, userID, permissionID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *GrantRepository) ListForUser(ctx context.Context, userID string) ([]models.Grant, error) {
	const query = `
		SELECT user_id, permission_id, granted_by, granted_at
		FROM user_permissions WHERE user_id = $1
		ORDER BY granted_at
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		var g models.Grant
		if err := rows.Scan(&g.UserID, &g.PermissionID, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
