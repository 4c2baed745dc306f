// Package migrate applies the embedded schema through goose and seeds
// reference data.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"realtyhub/internal/rbac"
)

//go:embed migrations/*.sql
var embedded embed.FS

const (
	defaultTable = "schema_migrations"
	dialect      = "postgres"
)

var ErrNothingToRollback = errors.New("no migrations to roll back")

// goose keeps its dialect, base FS and logger in package state.
var gooseMu sync.Mutex

type Manager struct {
	db    *sql.DB
	files fs.FS
	dir   string
	table string
	log   zerolog.Logger
}

type Option func(*Manager)

func WithTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.table = name
		}
	}
}

// WithFS swaps the embedded migrations for another tree rooted at dir.
func WithFS(files fs.FS, dir string) Option {
	return func(m *Manager) {
		m.files = files
		m.dir = dir
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func New(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:    db,
		files: embedded,
		dir:   "migrations",
		table: defaultTable,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// run configures goose for this manager and calls fn while holding the lock.
func (m *Manager) run(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	goose.SetBaseFS(m.files)
	goose.SetTableName(m.table)
	goose.SetLogger(gooseLogger{m.log})
	return fn()
}

// Up applies every pending migration.
func (m *Manager) Up(ctx context.Context) error {
	return m.run(func() error {
		return goose.UpContext(ctx, m.db, m.dir)
	})
}

// Down rolls back the most recently applied migration and returns the
// version the schema is left at.
func (m *Manager) Down(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func() error {
		current, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return err
		}
		if current == 0 {
			return ErrNothingToRollback
		}
		if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
			return err
		}
		version, err = goose.GetDBVersionContext(ctx, m.db)
		return err
	})
	return version, err
}

// Status logs every migration with its applied time or "Pending".
func (m *Manager) Status(ctx context.Context) error {
	return m.run(func() error {
		return goose.StatusContext(ctx, m.db, m.dir)
	})
}

func (m *Manager) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func() error {
		var err error
		version, err = goose.GetDBVersionContext(ctx, m.db)
		return err
	})
	return version, err
}

// Migrations lists the versions available to apply, in order.
func (m *Manager) Migrations() ([]int64, error) {
	var versions []int64
	err := m.run(func() error {
		found, err := goose.CollectMigrations(m.dir, 0, goose.MaxVersion)
		if err != nil {
			return err
		}
		for _, mig := range found {
			versions = append(versions, mig.Version)
		}
		return nil
	})
	return versions, err
}

// SeedPermissions upserts the permission catalog so grants can reference it.
func (m *Manager) SeedPermissions(ctx context.Context) (int, error) {
	const query = `
		INSERT INTO permissions (id, name, description, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, category = EXCLUDED.category
	`
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	catalog := rbac.Catalog()
	for _, p := range catalog {
		if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.Description, string(p.Category)); err != nil {
			return 0, fmt.Errorf("seed permission %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(catalog), nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Msgf(strings.TrimSpace(format), v...)
}

// Fatalf logs without exiting so the command decides how to fail.
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error().Msgf(strings.TrimSpace(format), v...)
}
