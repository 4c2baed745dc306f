package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"realtyhub/internal/models"
	"realtyhub/internal/queue"
	"realtyhub/internal/repository/memory"
	"realtyhub/internal/security"
)

var cheapHash = security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (q *fakeQueue) Enqueue(_ context.Context, task queue.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return "1-0", nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putKeys []string
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Bucket() string { return "property-images" }

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.example.com/property-images/" + key
}

type env struct {
	db     *memory.DB
	stores Stores
	clock  *fakeClock
	tokens *security.TokenService
	auth   *AuthService
}

func newEnv(t *testing.T, opts ...AuthOption) *env {
	t.Helper()
	clock := newFakeClock()
	db := memory.New()
	db.SetClock(clock.Now)
	stores := MemoryStores(db)

	tokens, err := security.NewTokenService(testSecret, security.DefaultTokenTTL, security.WithClock(clock.Now))
	require.NoError(t, err)

	opts = append([]AuthOption{WithAuthClock(clock.Now)}, opts...)
	return &env{
		db:     db,
		stores: stores,
		clock:  clock,
		tokens: tokens,
		auth:   NewAuthService(stores.Users, stores.Grants, tokens, zerolog.Nop(), opts...),
	}
}

func (e *env) seedUser(t *testing.T, id, email, password string, role models.UserRole) models.User {
	t.Helper()
	hash, err := security.HashPasswordWithParams(password, cheapHash)
	require.NoError(t, err)
	user := models.User{
		ID:           id,
		Name:         "User " + id,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, e.stores.Users.Create(context.Background(), user))
	return user
}

func pngBytes(size int) []byte {
	head := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(head, bytes.Repeat([]byte{0}, size-len(head))...)
}
