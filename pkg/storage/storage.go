package storage

import (
	"context"
	"time"
)

// Storage keeps export archives. Objects are private, readers get a link that
// expires.
type Storage interface {
	Upload(context.Context, *UploadObject) (*UploadResponse, error)
}

type UploadObject struct {
	Prefix   string
	FileName string
	Mime     string
	Data     []byte

	// Metadata is stored along with the object.
	Metadata map[string]string
}

type UploadResponse struct {
	Key       string
	Url       string
	ExpiresAt time.Time
}
