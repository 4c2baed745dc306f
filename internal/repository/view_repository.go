package repository

import (
	"context"
	"time"

	"realtyhub/internal/models"
)

type ViewRepository struct {
	conn
}

func (r *ViewRepository) Record(ctx context.Context, v models.PropertyView) error {
	const query = `
		INSERT INTO property_views (id, property_id, client_ip, user_agent, viewed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query, v.ID, v.PropertyID, v.ClientIP, v.UserAgent, v.ViewedAt)
	return mapError(err)
}

func (r *ViewRepository) RecentExists(ctx context.Context, propertyID, clientIP string, since time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM property_views
			WHERE property_id = $1 AND client_ip = $2 AND viewed_at >= $3
		)
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, query, propertyID, clientIP, since).Scan(&exists)
	return exists, err
}
