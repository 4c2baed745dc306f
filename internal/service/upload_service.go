package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"realtyhub/internal/ids"
	"realtyhub/internal/media/sniffer"
	"realtyhub/internal/models"
	"realtyhub/internal/queue"
	"realtyhub/internal/rbac"
)

const DefaultMaxUploadBytes int64 = 10 << 20

// UploadFile is one part of a multipart upload.
type UploadFile struct {
	Name         string
	Size         int64
	DeclaredType string
	Body         io.Reader
}

type StoredFile struct {
	Upload models.Upload
	URL    string
}

type UploadService struct {
	uploads  UploadStore
	store    ObjectStore
	tasks    Enqueuer
	maxBytes int64
	now      func() time.Time
	log      zerolog.Logger
}

func NewUploadService(uploads UploadStore, store ObjectStore, tasks Enqueuer, maxBytes int64, log zerolog.Logger) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{
		uploads:  uploads,
		store:    store,
		tasks:    tasks,
		maxBytes: maxBytes,
		now:      time.Now,
		log:      log,
	}
}

func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores every file or none of them. When a file is rejected, the
// objects and records already written for earlier files are removed.
func (s *UploadService) Upload(ctx context.Context, actor rbac.Principal, files []UploadFile) ([]StoredFile, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrUpstream)
	}
	if len(files) == 0 {
		return nil, invalid("files", "at least one file is required")
	}

	stored := make([]StoredFile, 0, len(files))
	for _, f := range files {
		out, err := s.storeOne(ctx, actor, f)
		if err != nil {
			s.rollback(context.WithoutCancel(ctx), stored)
			return nil, err
		}
		stored = append(stored, out)
	}

	for _, f := range stored {
		s.enqueueIngest(ctx, f.Upload)
		s.log.Info().
			Str("upload_id", f.Upload.ID).
			Str("object_key", f.Upload.ObjectKey).
			Int64("size", f.Upload.SizeBytes).
			Str("actor_id", actor.ID).
			Msg("file uploaded")
	}
	return stored, nil
}

func (s *UploadService) rollback(ctx context.Context, stored []StoredFile) {
	for _, f := range stored {
		if err := s.store.Remove(ctx, f.Upload.ObjectKey); err != nil {
			s.log.Warn().Err(err).Str("object_key", f.Upload.ObjectKey).Msg("remove rolled back object failed")
		}
		if err := s.uploads.Delete(ctx, f.Upload.ID); err != nil {
			s.log.Warn().Err(err).Str("upload_id", f.Upload.ID).Msg("delete rolled back upload failed")
		}
	}
}

func (s *UploadService) enqueueIngest(ctx context.Context, upload models.Upload) {
	if s.tasks == nil {
		return
	}
	task := queue.Task{
		Type: queue.TaskUploadIngest,
		Ref:  upload.ID,
		Data: map[string]string{"bucket": upload.Bucket, "key": upload.ObjectKey},
	}
	if _, err := s.tasks.Enqueue(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("upload_id", upload.ID).Msg("enqueue ingest failed")
	}
}

func (s *UploadService) storeOne(ctx context.Context, actor rbac.Principal, f UploadFile) (StoredFile, error) {
	if f.Size <= 0 {
		return StoredFile{}, invalid("files", "%s is empty", f.Name)
	}
	if f.Size > s.maxBytes {
		return StoredFile{}, invalid("files", "%s exceeds the %d MB limit", f.Name, s.maxBytes>>20)
	}

	result, body, err := sniffer.Detect(f.Body)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnsupportedType) {
			return StoredFile{}, invalid("files", "%s: %v", f.Name, err)
		}
		return StoredFile{}, fmt.Errorf("read %s: %w", f.Name, err)
	}
	declared := strings.ToLower(strings.TrimSpace(f.DeclaredType))
	if strings.HasPrefix(declared, "image/") && declared != result.MIME {
		return StoredFile{}, invalid("files", "%s: declared %s but content is %s", f.Name, declared, result.MIME)
	}

	id := ids.New()
	key := path.Join(s.now().UTC().Format("2006/01/02"), id+"."+result.Extension())

	sum := sha256.New()
	reader := io.TeeReader(io.LimitReader(body, f.Size), sum)
	if err := s.store.Put(ctx, key, reader, f.Size, result.MIME); err != nil {
		return StoredFile{}, upstream("store "+f.Name, err)
	}

	upload := models.Upload{
		ID:          id,
		UserID:      actor.ID,
		Bucket:      s.store.Bucket(),
		ObjectKey:   key,
		ContentType: result.MIME,
		SizeBytes:   f.Size,
		Checksum:    sum.Sum(nil),
		Status:      models.UploadStatusPending,
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", key).Msg("remove orphaned object failed")
		}
		return StoredFile{}, storeError(err, "upload")
	}

	return StoredFile{Upload: upload, URL: s.store.PublicURL(key)}, nil
}

// Delete removes an uploaded object by key or public URL.
func (s *UploadService) Delete(ctx context.Context, filePath string) error {
	if s.store == nil {
		return fmt.Errorf("%w: object storage is not configured", ErrUpstream)
	}
	key := s.objectKey(filePath)
	if key == "" {
		return invalid("filePath", "is required")
	}
	if strings.Contains(key, "..") {
		return invalid("filePath", "is not a valid object path")
	}

	upload, err := s.uploads.GetByObjectKey(ctx, s.store.Bucket(), key)
	if err != nil {
		return storeError(err, "file")
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return upstream("remove object", err)
	}
	return storeError(s.uploads.Delete(ctx, upload.ID), "file")
}

func (s *UploadService) objectKey(filePath string) string {
	key := strings.TrimSpace(filePath)
	if base := s.store.PublicURL(""); base != "" {
		key = strings.TrimPrefix(key, base)
	}
	return strings.TrimLeft(key, "/")
}
