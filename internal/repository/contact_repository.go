package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type ContactRepository struct {
	conn
}

const contactColumns = `id, name, email, phone, subject, message, property_id, agent_id, status, handled_by, created_at, updated_at`

func scanContact(row pgx.Row) (models.ContactMessage, error) {
	var m models.ContactMessage
	if err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.Phone, &m.Subject, &m.Message,
		&m.PropertyID, &m.AgentID, &m.Status, &m.HandledBy, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return models.ContactMessage{}, mapError(err)
	}
	return m, nil
}

func (r *ContactRepository) Create(ctx context.Context, m models.ContactMessage) error {
	const query = `
		INSERT INTO contact_messages (
			id, name, email, phone, subject, message, property_id, agent_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query, m.ID, m.Name, m.Email, m.Phone, m.Subject, m.Message, m.PropertyID, m.AgentID, m.Status)
	return mapError(err)
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (models.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages WHERE id = $1`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanContact(r.pool.QueryRow(ctx, query, id))
}

func (r *ContactRepository) List(ctx context.Context, filter models.ContactFilter, page models.Page) ([]models.ContactMessage, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PropertyID != "" {
		args = append(args, filter.PropertyID)
		where = append(where, fmt.Sprintf("property_id = $%d", len(args)))
	}
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_messages`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM contact_messages%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		contactColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []models.ContactMessage
	for rows.Next() {
		m, err := scanContact(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id string, status models.MessageStatus, handledBy string) (models.ContactMessage, error) {
	query := `
		UPDATE contact_messages SET status = $2, handled_by = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + contactColumns
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanContact(r.pool.QueryRow(ctx, query, id, status, handledBy))
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
