package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"realtyhub/internal/models"
)

type UploadRepository struct {
	conn
}

const uploadColumns = `id, user_id, bucket, object_key, content_type, size_bytes, checksum, status, created_at, updated_at`

func scanUpload(row pgx.Row) (models.Upload, error) {
	var u models.Upload
	if err := row.Scan(&u.ID, &u.UserID, &u.Bucket, &u.ObjectKey, &u.ContentType, &u.SizeBytes, &u.Checksum, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.Upload{}, mapError(err)
	}
	return u, nil
}

func (r *UploadRepository) Create(ctx context.Context, u models.Upload) error {
	const query = `
		INSERT INTO uploads (id, user_id, bucket, object_key, content_type, size_bytes, checksum, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, query, u.ID, u.UserID, u.Bucket, u.ObjectKey, u.ContentType, u.SizeBytes, u.Checksum, u.Status)
	return mapError(err)
}

func (r *UploadRepository) GetByID(ctx context.Context, id string) (models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanUpload(r.pool.QueryRow(ctx, query, id))
}

func (r *UploadRepository) GetByObjectKey(ctx context.Context, bucket, key string) (models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE bucket = $1 AND object_key = $2`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	return scanUpload(r.pool.QueryRow(ctx, query, bucket, key))
}

func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status models.UploadStatus) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `UPDATE uploads SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cmd, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStale returns uploads left in status since before the cutoff.
func (r *UploadRepository) ListStale(ctx context.Context, status models.UploadStatus, before time.Time, limit int) ([]models.Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, status, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
