package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/adapter"
	"codecraft-ai/internal/infra/logging"
)

// Compile-time check
var _ HistoryRefresher = (*HistoryStore)(nil)

// Identities reports the signed-in user.
type Identities interface {
	CurrentUser() (auth.Identity, bool)
}

// HistoryState is the visible state of the history list.
type HistoryState struct {
	Logs    []model.Log
	Err     error
	Loading bool
}

// HistoryStore keeps the user's log list and a level-triggered refresh flag.
type HistoryStore struct {
	gw     adapter.BackendGateway
	users  Identities
	logger *zerolog.Logger

	mu           sync.Mutex
	logs         []model.Log
	err          error
	loading      bool
	needsRefresh bool
	requests     uint64
	wake         chan struct{}
	subs         []func(HistoryState)
}

func NewHistoryStore(gw adapter.BackendGateway, users Identities, logger *zerolog.Logger) *HistoryStore {
	return &HistoryStore{
		gw:     gw,
		users:  users,
		logger: logging.Component(logger, "HistoryStore"),
		logs:   []model.Log{},
		wake:   make(chan struct{}, 1),
	}
}

// Subscribe registers fn to receive every state change.
func (h *HistoryStore) Subscribe(fn func(HistoryState)) {
	h.mu.Lock()
	h.subs = append(h.subs, fn)
	h.mu.Unlock()
}

func (h *HistoryStore) State() HistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

func (h *HistoryStore) Logs() []model.Log { return h.State().Logs }
func (h *HistoryStore) Err() error        { return h.State().Err }

// List fetches the user's logs, newest first, and makes them the visible list.
// Without a signed-in user it yields an empty list.
func (h *HistoryStore) List(ctx context.Context) ([]model.Log, error) {
	id, ok := h.users.CurrentUser()
	if !ok {
		h.update(func() {
			h.logs = []model.Log{}
			h.err = nil
			h.loading = false
		})
		return []model.Log{}, nil
	}

	h.update(func() { h.loading = true })
	logs, err := h.gw.ListLogs(ctx, id.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", id.UserID).Msg("failed to fetch logs")
		h.update(func() {
			h.err = err
			h.loading = false
		})
		return nil, err
	}
	model.SortLogsNewestFirst(logs)
	h.update(func() {
		h.logs = logs
		h.err = nil
		h.loading = false
	})
	return cloneLogs(logs), nil
}

// Delete removes the log from the visible list before asking the gateway.
// On failure the list is fetched again and the error stays visible.
func (h *HistoryStore) Delete(ctx context.Context, chatID string) error {
	id, ok := h.users.CurrentUser()
	if !ok {
		return domain.ErrUnauthenticated
	}

	h.update(func() {
		kept := make([]model.Log, 0, len(h.logs))
		for _, l := range h.logs {
			if l.ChatID != chatID {
				kept = append(kept, l)
			}
		}
		h.logs = kept
	})

	if err := h.gw.DeleteLog(ctx, id.UserID, chatID); err != nil {
		h.logger.Error().Err(err).Str("chat_id", chatID).Msg("failed to delete log")
		_, _ = h.List(ctx)
		h.update(func() { h.err = err })
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

// RequestRefresh raises the refresh flag. Only the false to true transition wakes Run.
func (h *HistoryStore) RequestRefresh() {
	h.mu.Lock()
	raised := !h.needsRefresh
	h.needsRefresh = true
	h.requests++
	h.mu.Unlock()
	if raised {
		h.signal()
	}
}

func (h *HistoryStore) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *HistoryStore) NeedsRefresh() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.needsRefresh
}

// RefreshIfNeeded re-lists when the flag is raised and then clears it. A
// request that arrives while the list is in flight keeps the flag raised and
// wakes Run again.
func (h *HistoryStore) RefreshIfNeeded(ctx context.Context) error {
	h.mu.Lock()
	if !h.needsRefresh {
		h.mu.Unlock()
		return nil
	}
	seen := h.requests
	h.mu.Unlock()

	_, err := h.List(ctx)

	h.mu.Lock()
	pending := h.requests != seen
	if !pending {
		h.needsRefresh = false
	}
	h.mu.Unlock()
	if pending {
		h.signal()
	}
	return err
}

// Run serves refresh requests until ctx is done.
func (h *HistoryStore) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.wake:
			if err := h.RefreshIfNeeded(ctx); err != nil && ctx.Err() == nil {
				h.logger.Debug().Err(err).Msg("history refresh failed")
			}
		}
	}
}

func (h *HistoryStore) update(fn func()) {
	h.mu.Lock()
	fn()
	st := h.stateLocked()
	subs := append([]func(HistoryState){}, h.subs...)
	h.mu.Unlock()
	for _, s := range subs {
		s(st)
	}
}

func (h *HistoryStore) stateLocked() HistoryState {
	return HistoryState{Logs: cloneLogs(h.logs), Err: h.err, Loading: h.loading}
}

func cloneLogs(in []model.Log) []model.Log {
	out := make([]model.Log, len(in))
	copy(out, in)
	return out
}
