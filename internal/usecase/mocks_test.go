package usecase_test

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/domain/ports/repository"
)

// --- Mock Logger

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Mock Identities

type MockUsers struct {
	mu sync.Mutex
	id string
}

func NewMockUsers(userID string) *MockUsers { return &MockUsers{id: userID} }

func (m *MockUsers) CurrentUser() (auth.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.id == "" {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: m.id}, true
}

func (m *MockUsers) SignOut() {
	m.mu.Lock()
	m.id = ""
	m.mu.Unlock()
}

// --- Mock Streams

type streamItem struct {
	text string
	err  error
}

// ScriptedStream delivers items pushed on Feed, in order. Closing Feed ends the stream.
type ScriptedStream struct {
	ctx    context.Context
	Feed   chan streamItem
	closed bool
}

func NewScriptedStream(ctx context.Context) *ScriptedStream {
	return &ScriptedStream{ctx: ctx, Feed: make(chan streamItem, 16)}
}

func (s *ScriptedStream) Recv() (string, error) {
	select {
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	case it, ok := <-s.Feed:
		if !ok {
			return "", io.EOF
		}
		return it.text, it.err
	}
}

func (s *ScriptedStream) Close() error {
	s.closed = true
	return nil
}

// staticStream yields chunks and then ends, or fails with err after the chunks.
func staticStream(ctx context.Context, err error, chunks ...string) *ScriptedStream {
	s := NewScriptedStream(ctx)
	for _, c := range chunks {
		s.Feed <- streamItem{text: c}
	}
	if err != nil {
		s.Feed <- streamItem{err: err}
	}
	close(s.Feed)
	return s
}

// --- Mock Gateway

type MockGateway struct {
	mu sync.Mutex

	// GenerateFunc defaults to a stream that yields "ok".
	GenerateFunc func(ctx context.Context, req adapter.GenerateRequest) (adapter.TextStream, error)
	Requests     []adapter.GenerateRequest

	Saved   []model.Log
	SaveErr error
	// SaveGate, when set, receives on entry to SaveLog and then blocks until it is closed.
	SaveGate chan struct{}

	Logs      []model.Log
	ListErr   error
	ListCalls int
	// ListGate works like SaveGate for ListLogs.
	ListGate chan struct{}

	Deleted   []string
	DeleteErr error

	Renamed   map[string]string
	RenameErr error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{Renamed: make(map[string]string)}
}

func (m *MockGateway) Generate(ctx context.Context, req adapter.GenerateRequest) (adapter.TextStream, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.GenerateFunc
	m.mu.Unlock()
	if fn == nil {
		return staticStream(ctx, nil, "ok"), nil
	}
	return fn(ctx, req)
}

func (m *MockGateway) SaveLog(ctx context.Context, log model.Log) error {
	if m.SaveGate != nil {
		m.SaveGate <- struct{}{}
		<-m.SaveGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, log)
	return nil
}

func (m *MockGateway) ListLogs(ctx context.Context, userID string) ([]model.Log, error) {
	if m.ListGate != nil {
		m.ListGate <- struct{}{}
		<-m.ListGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]model.Log, 0, len(m.Logs))
	for _, l := range m.Logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockGateway) DeleteLog(ctx context.Context, userID, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, chatID)
	kept := m.Logs[:0]
	for _, l := range m.Logs {
		if !(l.UserID == userID && l.ChatID == chatID) {
			kept = append(kept, l)
		}
	}
	m.Logs = kept
	return nil
}

func (m *MockGateway) UpdateLogTitle(ctx context.Context, userID, chatID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RenameErr != nil {
		return m.RenameErr
	}
	m.Renamed[chatID] = title
	return nil
}

func (m *MockGateway) savedLogs() []model.Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Log(nil), m.Saved...)
}

func (m *MockGateway) requests() []adapter.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.GenerateRequest(nil), m.Requests...)
}

// --- Mock Refresher

type MockRefresher struct {
	mu    sync.Mutex
	calls int
}

func (m *MockRefresher) RequestRefresh() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *MockRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Deterministic ids and clock

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// --- Mock Log Repository

type memLogRepo struct {
	mu      sync.Mutex
	store   map[string]model.Log
	saveErr error
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{store: make(map[string]model.Log)}
}

func logKey(userID, chatID string) string { return userID + "/" + chatID }

func (m *memLogRepo) Save(ctx context.Context, qx any, l *model.Log) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[logKey(l.UserID, l.ChatID)] = *l
	return nil
}

func (m *memLogRepo) FindByID(ctx context.Context, qx any, userID, chatID string) (*model.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[logKey(userID, chatID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *memLogRepo) ListByUser(ctx context.Context, qx any, userID string) ([]model.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Log{}
	for _, l := range m.store {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	model.SortLogsNewestFirst(out)
	return out, nil
}

func (m *memLogRepo) Delete(ctx context.Context, qx any, userID, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, logKey(userID, chatID))
	return nil
}

func (m *memLogRepo) UpdateTitle(ctx context.Context, qx any, userID, chatID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := logKey(userID, chatID)
	l, ok := m.store[k]
	if !ok {
		return domain.ErrNotFound
	}
	l.Prompt = title
	m.store[k] = l
	return nil
}

func (m *memLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, l := range m.store {
		if l.Timestamp.Before(cutoff) {
			delete(m.store, k)
			n++
		}
	}
	return n, nil
}

// --- Mock TxManager

type MockTxManager struct{ calls int }

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	return fn(ctx, nil)
}

// --- Mock Code Generator

type MockGenerator struct {
	mu     sync.Mutex
	Chunks []string
	Err    error
	Last   adapter.GenerationRequest
}

func (m *MockGenerator) ListModels(ctx context.Context) ([]string, error) { return []string{"mock"}, nil }

func (m *MockGenerator) Stream(ctx context.Context, req adapter.GenerationRequest) iter.Seq2[string, error] {
	m.mu.Lock()
	m.Last = req
	chunks, err := m.Chunks, m.Err
	m.mu.Unlock()
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

// wordCounter counts whitespace-separated words.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	n, in := 0, false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			in = false
			continue
		}
		if !in {
			n++
			in = true
		}
	}
	return n
}

// --- Mock Limiter and Locker

type MockLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func NewMockLimiter() *MockLimiter { return &MockLimiter{counts: map[string]int{}} }

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
	n    int
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLocked
	}
	m.n++
	tok := fmt.Sprintf("tok-%d", m.n)
	m.held[key] = tok
	return tok, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *MockLocker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
