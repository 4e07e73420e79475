package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MockRedisClient struct {
	GetObjFunc func(ctx context.Context, key string, v any) error
	SetObjFunc func(ctx context.Context, key string, obj any, ttl time.Duration) error
	DelFunc    func(ctx context.Context, key ...string) error
	SetNXFunc  func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

func (m *MockRedisClient) GetObj(ctx context.Context, key string, v any) error {
	if m.GetObjFunc != nil {
		return m.GetObjFunc(ctx, key, v)
	}

	return redis.Nil
}

func (m *MockRedisClient) SetObj(ctx context.Context, key string, obj any, ttl time.Duration) error {
	if m.SetObjFunc != nil {
		return m.SetObjFunc(ctx, key, obj, ttl)
	}

	return nil
}

func (m *MockRedisClient) Del(ctx context.Context, key ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, key...)
	}

	return nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, ttl)
	}

	return true, nil
}

// NewClaimRedisClient returns a mock whose SetNX and Del behave like redis on
// an in-memory key set.
func NewClaimRedisClient() (*MockRedisClient, map[string]string) {
	var mutex sync.Mutex
	keys := map[string]string{}
	return &MockRedisClient{
		SetNXFunc: func(_ context.Context, key, value string, _ time.Duration) (bool, error) {
			mutex.Lock()
			defer mutex.Unlock()

			if _, ok := keys[key]; ok {
				return false, nil
			}

			keys[key] = value
			return true, nil
		},
		DelFunc: func(_ context.Context, key ...string) error {
			mutex.Lock()
			defer mutex.Unlock()

			for _, k := range key {
				delete(keys, k)
			}
			return nil
		},
	}, keys
}
