package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type TestimonialRepository struct {
	conn
}

const testimonialColumns = `id, name, role, content, rating, avatar_url, approved_by, is_active, created_at, updated_at`

func scanTestimonial(row pgx.Row) (models.Testimonial, error) {
	var t models.Testimonial
	if err := row.Scan(&t.ID, &t.Name, &t.Role, &t.Content, &t.Rating, &t.AvatarURL, &t.ApprovedBy, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Testimonial{}, mapError(err)
	}
	return t, nil
}

func (r *TestimonialRepository) Create(ctx context.Context, t models.Testimonial) error {
	const query = `
		INSERT INTO testimonials (id, name, role, content, rating, avatar_url, approved_by, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Role, t.Content, t.Rating, t.AvatarURL, t.ApprovedBy)
	return mapError(err)
}

func (r *TestimonialRepository) GetByID(ctx context.Context, id string) (models.Testimonial, error) {
	query := `SELECT ` + testimonialColumns + ` FROM testimonials WHERE id = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanTestimonial(r.pool.QueryRow(ctx, query, id))
}

func (r *TestimonialRepository) List(ctx context.Context, approvedOnly bool, page models.Page) ([]models.Testimonial, int, error) {
	clause := ` WHERE is_active`
	if approvedOnly {
		clause += ` AND approved_by IS NOT NULL`
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM testimonials`+clause).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count testimonials: %w", err)
	}

	query := `SELECT ` + testimonialColumns + ` FROM testimonials` + clause + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list testimonials: %w", err)
	}
	defer rows.Close()

	var out []models.Testimonial
	for rows.Next() {
		t, err := scanTestimonial(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *TestimonialRepository) Update(ctx context.Context, t models.Testimonial) error {
	const query = `
		UPDATE testimonials
		SET name = $2, role = $3, content = $4, rating = $5, avatar_url = $6, approved_by = $7, updated_at = NOW()
		WHERE id = $1 AND is_active
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Role, t.Content, t.Rating, t.AvatarURL, t.ApprovedBy)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TestimonialRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `UPDATE testimonials SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
