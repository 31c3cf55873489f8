//go:build !integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"codecraft-ai/internal/domain"
)

// fakeRedis is an in-memory RedisClient without expiry.
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     map[string]time.Duration
	failing error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return f.failing }

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = toString(value)
	f.ttl[key] = exp
	return f.failing
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	if f.failing != nil {
		return false, f.failing
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = toString(value)
	f.ttl[key] = exp
	return true, nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	if f.failing != nil {
		return 0, f.failing
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = toString(n)
	return n, nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttl[key] = exp
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[key] != value {
		return false, nil
	}
	delete(f.data, key)
	return true, nil
}

func (f *fakeRedis) Close() error { return nil }

func toString(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	l := NewLocker(f)

	tok, err := l.TryLock(ctx, "lock:generate:u1", time.Minute)
	if err != nil || tok == "" {
		t.Fatalf("want lock acquired, got %q, %v", tok, err)
	}
	if f.ttl["lock:generate:u1"] != time.Minute {
		t.Fatalf("want ttl set, got %v", f.ttl["lock:generate:u1"])
	}
	if _, err := l.TryLock(ctx, "lock:generate:u1", time.Minute); !errors.Is(err, domain.ErrLocked) {
		t.Fatalf("want ErrLocked, got %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:generate:u2", time.Minute); err != nil {
		t.Fatalf("locks are per key: %v", err)
	}

	// a stale token must not release someone else's lock
	if err := l.Unlock(ctx, "lock:generate:u1", "stale"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:generate:u1", time.Minute); !errors.Is(err, domain.ErrLocked) {
		t.Fatalf("want lock still held, got %v", err)
	}

	if err := l.Unlock(ctx, "lock:generate:u1", tok); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := l.TryLock(ctx, "lock:generate:u1", time.Minute); err != nil {
		t.Fatalf("want lock free after unlock, got %v", err)
	}
}

func TestRedisLocker_BackendError(t *testing.T) {
	f := newFakeRedis()
	f.failing = errors.New("connection refused")
	_, err := NewLocker(f).TryLock(context.Background(), "k", time.Second)
	if err == nil || errors.Is(err, domain.ErrLocked) {
		t.Fatalf("want backend error distinct from ErrLocked, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	rl := NewRateLimiter(f)
	key := UserCommandKey("u1", "generate")

	for i := 1; i <= 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("call %d: want allowed, got %v, %v", i, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Fatal("want fourth call rejected")
	}
	if f.ttl[key] != time.Minute {
		t.Fatalf("want window applied on first hit, got %v", f.ttl[key])
	}

	f.failing = errors.New("down")
	if _, err := rl.Allow(ctx, key, 3, time.Minute); err == nil {
		t.Fatal("want backend error surfaced")
	}
}

func TestUserCommandKey(t *testing.T) {
	if got := UserCommandKey("u1", "generate"); got != "rate_limit:generate:u1" {
		t.Fatalf("want rate_limit:generate:u1, got %s", got)
	}
}
