package migrate

import (
	"bytes"
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtyhub/internal/rbac"
	"realtyhub/internal/security"
)

func newMock(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestSeedPermissionsUpsertsCatalog(t *testing.T) {
	m, mock := newMock(t)
	catalog := rbac.Catalog()

	mock.ExpectBegin()
	for _, p := range catalog {
		mock.ExpectExec("INSERT INTO permissions").
			WithArgs(p.ID, p.Name, p.Description, string(p.Category)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	n, err := m.SeedPermissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(catalog), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminInserts(t *testing.T) {
	m, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM admin_users").WithArgs("root@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO admin_users").
		WithArgs(sqlmock.AnyArg(), "Root", "root@example.com", sqlmock.AnyArg(), "super_admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, created, err := m.EnsureAdmin(context.Background(), AdminSpec{
		Name: "Root", Email: " root@example.com ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminResetsExisting(t *testing.T) {
	m, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM admin_users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectExec("UPDATE admin_users").
		WithArgs("u1", "Root", sqlmock.AnyArg(), "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, created, err := m.EnsureAdmin(context.Background(), AdminSpec{
		Name: "Root", Email: "root@example.com", Password: "secret123", Role: "admin",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminRejectsWeakPassword(t *testing.T) {
	m, mock := newMock(t)

	_, _, err := m.EnsureAdmin(context.Background(), AdminSpec{
		Name: "Root", Email: "root@example.com", Password: "short",
	})
	assert.ErrorIs(t, err, security.ErrWeakPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrationsAreVersioned(t *testing.T) {
	versions, err := New(nil).Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, int64(1), versions[0])
	assert.IsIncreasing(t, versions)
}

func TestEmbeddedMigrationsHaveDownSections(t *testing.T) {
	entries, err := fs.ReadDir(embedded, "migrations")
	require.NoError(t, err)
	for _, e := range entries {
		body, err := fs.ReadFile(embedded, "migrations/"+e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}
}

func TestMigrationsFromAlternateFS(t *testing.T) {
	files := fstest.MapFS{
		"sql/00002_b.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"sql/00001_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"sql/README.md":   {Data: []byte("ignored")},
	}
	versions, err := New(nil, WithFS(files, "sql")).Migrations()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, versions)
}

func TestGooseOutputGoesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := gooseLogger{zerolog.New(&buf)}
	l.Printf("OK   %s (%s)\n", "00001_init.sql", "12ms")
	assert.Contains(t, buf.String(), `"message":"OK   00001_init.sql (12ms)"`)
}
