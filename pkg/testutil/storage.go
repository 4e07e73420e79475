package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/questx-lab/luckydraw/pkg/storage"
)

// MockStorage keeps uploaded objects in memory unless UploadFunc is set.
type MockStorage struct {
	UploadFunc func(context.Context, *storage.UploadObject) (*storage.UploadResponse, error)

	mutex    sync.Mutex
	Uploaded []*storage.UploadObject
}

func (m *MockStorage) Upload(
	ctx context.Context, obj *storage.UploadObject,
) (*storage.UploadResponse, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, obj)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Uploaded = append(m.Uploaded, obj)

	key := obj.Prefix + "/" + obj.FileName
	return &storage.UploadResponse{
		Key:       key,
		Url:       "memory://" + key,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}
