package models

import "time"

type UploadStatus string

const (
	UploadStatusPending UploadStatus = "pending"
	UploadStatusReady   UploadStatus = "ready"
	UploadStatusFailed  UploadStatus = "failed"
)

type Upload struct {
	ID          string
	UserID      string
	Bucket      string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	Checksum    []byte
	Status      UploadStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
