package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repositories bundles every Postgres-backed store.
type Repositories struct {
	Users        *UserRepository
	Grants       *GrantRepository
	Properties   *PropertyRepository
	Agents       *AgentRepository
	Contacts     *ContactRepository
	Testimonials *TestimonialRepository
	Views        *ViewRepository
	Uploads      *UploadRepository
	Analytics    *AnalyticsRepository
}

func New(pool *pgxpool.Pool, queryTimeout time.Duration) Repositories {
	c := conn{pool: pool, timeout: queryTimeout}
	return Repositories{
		Users:        &UserRepository{conn: c},
		Grants:       &GrantRepository{conn: c},
		Properties:   &PropertyRepository{conn: c},
		Agents:       &AgentRepository{conn: c},
		Contacts:     &ContactRepository{conn: c},
		Testimonials: &TestimonialRepository{conn: c},
		Views:        &ViewRepository{conn: c},
		Uploads:      &UploadRepository{conn: c},
		Analytics:    &AnalyticsRepository{conn: c},
	}
}

type conn struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// ctx bounds a single statement. A zero timeout leaves the caller's deadline alone.
func (c conn) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, c.timeout)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Join(ErrDuplicate, err)
		case pgForeignKeyViolation:
			return errors.Join(ErrNotFound, err)
		}
	}
	return err
}
