// Package memory is an in-process implementation of the repository stores. It
// backs tests and the memory database driver used for local development.
package memory

import (
	"cmp"
	"sort"
	"sync"
	"time"

	"realtyhub/internal/models"
)

// DB holds every table behind one lock.
type DB struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[string]models.User
	grants       map[string]map[string]models.Grant
	properties   map[string]models.Property
	agents       map[string]models.Agent
	contacts     map[string]models.ContactMessage
	testimonials map[string]models.Testimonial
	views        []models.PropertyView
	uploads      map[string]models.Upload
}

func New() *DB {
	return &DB{
		now:          time.Now,
		users:        make(map[string]models.User),
		grants:       make(map[string]map[string]models.Grant),
		properties:   make(map[string]models.Property),
		agents:       make(map[string]models.Agent),
		contacts:     make(map[string]models.ContactMessage),
		testimonials: make(map[string]models.Testimonial),
		uploads:      make(map[string]models.Upload),
	}
}

// SetClock replaces the source of created/updated timestamps.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	db.now = now
	db.mu.Unlock()
}

func (db *DB) Users() *Users               { return &Users{db} }
func (db *DB) Grants() *Grants             { return &Grants{db} }
func (db *DB) Properties() *Properties     { return &Properties{db} }
func (db *DB) Agents() *Agents             { return &Agents{db} }
func (db *DB) Contacts() *Contacts         { return &Contacts{db} }
func (db *DB) Testimonials() *Testimonials { return &Testimonials{db} }
func (db *DB) Views() *Views               { return &Views{db} }
func (db *DB) Uploads() *Uploads           { return &Uploads{db} }
func (db *DB) Analytics() *Analytics       { return &Analytics{db} }

func paginate[T any](items []T, page models.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := len(items)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return items[start:end]
}

func newestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}

func sortBy[T any, K cmp.Ordered](items []T, key func(T) K) {
	sort.SliceStable(items, func(i, j int) bool {
		return key(items[i]) < key(items[j])
	})
}
