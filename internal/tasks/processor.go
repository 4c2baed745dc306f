// Package tasks runs the background work the API hands to the worker.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"realtyhub/internal/metrics"
	"realtyhub/internal/models"
	"realtyhub/internal/queue"
	"realtyhub/internal/repository"
	"realtyhub/internal/storage"
)

const cleanupBatch = 100

type UploadStore interface {
	GetByID(ctx context.Context, id string) (models.Upload, error)
	UpdateStatus(ctx context.Context, id string, status models.UploadStatus) error
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, status models.UploadStatus, before time.Time, limit int) ([]models.Upload, error)
}

type ObjectStore interface {
	Stat(ctx context.Context, key string) (int64, string, error)
	Remove(ctx context.Context, key string) error
}

type Processor struct {
	uploads      UploadStore
	objects      ObjectStore
	cleanupAfter time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time
	logger       zerolog.Logger
}

type Option func(*Processor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(uploads UploadStore, objects ObjectStore, cleanupAfter time.Duration, logger zerolog.Logger, opts ...Option) *Processor {
	if cleanupAfter <= 0 {
		cleanupAfter = 24 * time.Hour
	}
	p := &Processor{
		uploads:      uploads,
		objects:      objects,
		cleanupAfter: cleanupAfter,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle dispatches one task. A returned error leaves the task pending so
// another consumer can claim it later.
func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	var err error
	switch task.Type {
	case queue.TaskContactNotify:
		err = p.handleContactNotify(ctx, task)
	case queue.TaskUploadIngest:
		err = p.handleIngest(ctx, task)
	case queue.TaskUploadsCleanup:
		err = p.handleCleanup(ctx, task)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		p.metrics.Task(task.Type, "unknown")
		return nil
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.metrics.Task(task.Type, outcome)
	return err
}

func (p *Processor) handleContactNotify(_ context.Context, task queue.Task) error {
	event := p.logger.Info().
		Str("message_id", task.Ref).
		Str("from", task.Data["email"]).
		Str("name", task.Data["name"]).
		Str("subject", task.Data["subject"])
	if id := task.Data["propertyId"]; id != "" {
		event = event.Str("property_id", id)
	}
	if id := task.Data["agentId"]; id != "" {
		event = event.Str("agent_id", id)
	}
	event.Msg("new contact message")
	return nil
}

// handleIngest confirms the object landed in storage with the recorded size.
func (p *Processor) handleIngest(ctx context.Context, task queue.Task) error {
	if p.uploads == nil || p.objects == nil {
		return errors.New("ingest needs upload and object stores")
	}
	upload, err := p.uploads.GetByID(ctx, task.Ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p.logger.Info().Str("upload_id", task.Ref).Msg("upload gone before ingest")
			return nil
		}
		return fmt.Errorf("load upload %s: %w", task.Ref, err)
	}
	if upload.Status != models.UploadStatusPending {
		return nil
	}

	status := models.UploadStatusReady
	size, contentType, err := p.objects.Stat(ctx, upload.ObjectKey)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		status = models.UploadStatusFailed
	case err != nil:
		return fmt.Errorf("stat %s: %w", upload.ObjectKey, err)
	case size != upload.SizeBytes || contentType != upload.ContentType:
		status = models.UploadStatusFailed
	}

	if err := p.uploads.UpdateStatus(ctx, upload.ID, status); err != nil {
		return fmt.Errorf("mark upload %s %s: %w", upload.ID, status, err)
	}
	p.logger.Info().
		Str("upload_id", upload.ID).
		Str("object_key", upload.ObjectKey).
		Str("status", string(status)).
		Msg("upload ingested")
	return nil
}

// handleCleanup drops failed uploads older than the retention window from
// storage and the database, one batch per run.
func (p *Processor) handleCleanup(ctx context.Context, _ queue.Task) error {
	if p.uploads == nil || p.objects == nil {
		return errors.New("cleanup needs upload and object stores")
	}
	before := p.now().Add(-p.cleanupAfter)
	stale, err := p.uploads.ListStale(ctx, models.UploadStatusFailed, before, cleanupBatch)
	if err != nil {
		return fmt.Errorf("list stale uploads: %w", err)
	}

	removed := 0
	for _, u := range stale {
		if err := p.objects.Remove(ctx, u.ObjectKey); err != nil {
			p.logger.Warn().Err(err).Str("upload_id", u.ID).Msg("remove stale object failed")
			continue
		}
		if err := p.uploads.Delete(ctx, u.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			p.logger.Warn().Err(err).Str("upload_id", u.ID).Msg("delete stale upload failed")
			continue
		}
		removed++
	}
	p.logger.Info().Int("found", len(stale)).Int("removed", removed).Msg("upload cleanup finished")
	return nil
}
