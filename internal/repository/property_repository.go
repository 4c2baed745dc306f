package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type PropertyRepository struct {
	conn
}

const propertyColumns = `id, title, description, price, address, city, bedrooms, bathrooms, area,
	features, images, type, status, featured, agent_id, is_active, created_by, created_at, updated_at`

func scanProperty(row pgx.Row) (models.Property, error) {
	var p models.Property
	if err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Address, &p.City,
		&p.Bedrooms, &p.Bathrooms, &p.Area, &p.Features, &p.Images,
		&p.Type, &p.Status, &p.Featured, &p.AgentID, &p.Active,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return models.Property{}, mapError(err)
	}
	return p, nil
}

func (r *PropertyRepository) Create(ctx context.Context, p models.Property) error {
	const query = `
		INSERT INTO properties (
			id, title, description, price, address, city, bedrooms, bathrooms, area,
			features, images, type, status, featured, agent_id, is_active, created_by,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, TRUE, $16, NOW(), NOW()
		)
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.Address, p.City, p.Bedrooms, p.Bathrooms, p.Area,
		p.Features, p.Images, p.Type, p.Status, p.Featured, p.AgentID, p.CreatedBy,
	)
	return mapError(err)
}

// GetByID returns active properties only.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanProperty(r.pool.QueryRow(ctx, query, id))
}

func (r *PropertyRepository) List(ctx context.Context, filter models.PropertyFilter, page models.Page) ([]models.Property, int, error) {
	where := []string{"is_active"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.City != "" {
		add("city ILIKE $%d", "%"+filter.City+"%")
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.Bedrooms != nil {
		add("bedrooms = $%d", *filter.Bedrooms)
	}
	if filter.Featured {
		where = append(where, "featured")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM properties%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		propertyColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PropertyRepository) Update(ctx context.Context, p models.Property) error {
	const query = `
		UPDATE properties
		SET title = $2, description = $3, price = $4, address = $5, city = $6, bedrooms = $7,
		    bathrooms = $8, area = $9, features = $10, images = $11, type = $12, status = $13,
		    featured = $14, agent_id = $15, updated_at = NOW()
		WHERE id = $1 AND is_active
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Price, p.Address, p.City, p.Bedrooms, p.Bathrooms, p.Area,
		p.Features, p.Images, p.Type, p.Status, p.Featured, p.AgentID,
	)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PropertyRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE properties SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
