//go:build !integration

package postgres

import (
	"context"
	"time"

	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
	red "codecraft-ai/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerLogRepo mocks the database repository that the log decorator wraps.
type mockInnerLogRepo struct {
	SaveFunc            func(ctx context.Context, qx any, l *model.Log) error
	FindByIDFunc        func(ctx context.Context, qx any, userID, chatID string) (*model.Log, error)
	ListByUserFunc      func(ctx context.Context, qx any, userID string) ([]model.Log, error)
	DeleteFunc          func(ctx context.Context, qx any, userID, chatID string) error
	UpdateTitleFunc     func(ctx context.Context, qx any, userID, chatID, title string) error
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ repository.LogRepository = &mockInnerLogRepo{}

func (m *mockInnerLogRepo) Save(ctx context.Context, qx any, l *model.Log) error {
	return m.SaveFunc(ctx, qx, l)
}
func (m *mockInnerLogRepo) FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error) {
	return m.FindByIDFunc(ctx, qx, userID, chatID)
}
func (m *mockInnerLogRepo) ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error) {
	return m.ListByUserFunc(ctx, qx, userID)
}
func (m *mockInnerLogRepo) Delete(ctx context.Context, qx any, userID, chatID string) error {
	return m.DeleteFunc(ctx, qx, userID, chatID)
}
func (m *mockInnerLogRepo) UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error {
	return m.UpdateTitleFunc(ctx, qx, userID, chatID, title)
}
func (m *mockInnerLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.DeleteOlderThanFunc(ctx, cutoff)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	return false, nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }
