package service

import (
	"context"
	"io"
	"time"

	"realtyhub/internal/models"
	"realtyhub/internal/queue"
	"realtyhub/internal/repository"
	"realtyhub/internal/repository/memory"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindActiveByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter models.UserFilter, page models.Page) ([]models.User, int, error)
	Update(ctx context.Context, user models.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type GrantStore interface {
	Grant(ctx context.Context, grant models.Grant) (bool, error)
	Revoke(ctx context.Context, userID, permissionID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Grant, error)
}

type PropertyStore interface {
	Create(ctx context.Context, p models.Property) error
	GetByID(ctx context.Context, id string) (models.Property, error)
	List(ctx context.Context, filter models.PropertyFilter, page models.Page) ([]models.Property, int, error)
	Update(ctx context.Context, p models.Property) error
	Deactivate(ctx context.Context, id string) error
}

type AgentStore interface {
	Create(ctx context.Context, a models.Agent) error
	GetByID(ctx context.Context, id string) (models.Agent, error)
	FindActiveByEmail(ctx context.Context, email string) (models.Agent, error)
	List(ctx context.Context) ([]models.Agent, error)
	Update(ctx context.Context, a models.Agent) error
	Deactivate(ctx context.Context, id string) error
}

type ContactStore interface {
	Create(ctx context.Context, m models.ContactMessage) error
	GetByID(ctx context.Context, id string) (models.ContactMessage, error)
	List(ctx context.Context, filter models.ContactFilter, page models.Page) ([]models.ContactMessage, int, error)
	UpdateStatus(ctx context.Context, id string, status models.MessageStatus, handledBy string) (models.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

type TestimonialStore interface {
	Create(ctx context.Context, t models.Testimonial) error
	GetByID(ctx context.Context, id string) (models.Testimonial, error)
	List(ctx context.Context, approvedOnly bool, page models.Page) ([]models.Testimonial, int, error)
	Update(ctx context.Context, t models.Testimonial) error
	Deactivate(ctx context.Context, id string) error
}

type ViewStore interface {
	Record(ctx context.Context, v models.PropertyView) error
	RecentExists(ctx context.Context, propertyID, clientIP string, since time.Time) (bool, error)
}

type UploadStore interface {
	Create(ctx context.Context, u models.Upload) error
	GetByID(ctx context.Context, id string) (models.Upload, error)
	GetByObjectKey(ctx context.Context, bucket, key string) (models.Upload, error)
	UpdateStatus(ctx context.Context, id string, status models.UploadStatus) error
	Delete(ctx context.Context, id string) error
}

type AnalyticsStore interface {
	CountProperties(ctx context.Context, since time.Time) (int, error)
	CountAgents(ctx context.Context) (int, error)
	CountMessages(ctx context.Context, since time.Time) (int, error)
	CountViews(ctx context.Context, since time.Time) (int, error)
	CountTestimonials(ctx context.Context) (int, error)
	PropertiesByType(ctx context.Context) (map[string]int, error)
	MessagesByStatus(ctx context.Context, since time.Time) (map[string]int, error)
	CityDistribution(ctx context.Context) (map[string]int, error)
	AveragePriceByType(ctx context.Context) (map[string]float64, error)
	TopViewedProperties(ctx context.Context, limit int) ([]models.PropertyViewCount, error)
	ViewsByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error)
	MessagesByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error)
}

// ObjectStore is the slice of object storage the upload flow needs.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Enqueuer hands background work to the worker process.
type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
}

// Stores bundles one backend's implementations of every store.
type Stores struct {
	Users        UserStore
	Grants       GrantStore
	Properties   PropertyStore
	Agents       AgentStore
	Contacts     ContactStore
	Testimonials TestimonialStore
	Views        ViewStore
	Uploads      UploadStore
	Analytics    AnalyticsStore
}

func PostgresStores(r repository.Repositories) Stores {
	return Stores{
		Users:        r.Users,
		Grants:       r.Grants,
		Properties:   r.Properties,
		Agents:       r.Agents,
		Contacts:     r.Contacts,
		Testimonials: r.Testimonials,
		Views:        r.Views,
		Uploads:      r.Uploads,
		Analytics:    r.Analytics,
	}
}

func MemoryStores(db *memory.DB) Stores {
	return Stores{
		Users:        db.Users(),
		Grants:       db.Grants(),
		Properties:   db.Properties(),
		Agents:       db.Agents(),
		Contacts:     db.Contacts(),
		Testimonials: db.Testimonials(),
		Views:        db.Views(),
		Uploads:      db.Uploads(),
		Analytics:    db.Analytics(),
	}
}
