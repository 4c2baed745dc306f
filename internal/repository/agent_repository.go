package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type AgentRepository struct {
	conn
}

const agentColumns = `id, name, position, email, phone, bio, photo_url, is_active, created_at, updated_at`

func scanAgent(row pgx.Row) (models.Agent, error) {
	var a models.Agent
	if err := row.Scan(&a.ID, &a.Name, &a.Position, &a.Email, &a.Phone, &a.Bio, &a.PhotoURL, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Agent{}, mapError(err)
	}
	return a, nil
}

func (r *AgentRepository) Create(ctx context.Context, a models.Agent) error {
	const query = `
		INSERT INTO agents (id, name, position, email, phone, bio, photo_url, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.Position, a.Email, a.Phone, a.Bio, a.PhotoURL)
	return mapError(err)
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanAgent(r.pool.QueryRow(ctx, query, id))
}

func (r *AgentRepository) FindActiveByEmail(ctx context.Context, email string) (models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE email = $1 AND is_active`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanAgent(r.pool.QueryRow(ctx, query, email))
}

func (r *AgentRepository) List(ctx context.Context) ([]models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE is_active ORDER BY name`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AgentRepository) Update(ctx context.Context, a models.Agent) error {
	const query = `
		UPDATE agents
		SET name = $2, position = $3, email = $4, phone = $5, bio = $6, photo_url = $7, updated_at = NOW()
		WHERE id = $1 AND is_active
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.Position, a.Email, a.Phone, a.Bio, a.PhotoURL)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AgentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE agents SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`
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
