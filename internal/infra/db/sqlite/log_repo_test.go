//go:build !integration

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/domain/ports/repository"
)

func newRepo(t *testing.T) (*LogRepo, *TxManager) {
	t.Helper()
	db, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	return NewLogRepo(db), NewTxManager(db)
}

func TestLogRepo_SaveListUpsert(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "a", Timestamp: base, Prompt: "first"}))
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "b", Timestamp: base.Add(time.Hour), Prompt: "second", LearningMode: true}))
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u2", ChatID: "a", Timestamp: base, Prompt: "other user"}))
	// upsert keeps one row per (user, chat)
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "a", Timestamp: base, Prompt: "first", Explanation: "x"}))

	logs, err := repo.ListByUser(ctx, nil, "u1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "b", logs[0].ChatID)
	assert.True(t, logs[0].LearningMode)
	assert.Equal(t, "x", logs[1].Explanation)
	assert.True(t, logs[1].Timestamp.Equal(base))

	empty, err := repo.ListByUser(ctx, nil, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLogRepo_UpdateTitleInTx(t *testing.T) {
	ctx := context.Background()
	repo, tm := newRepo(t)
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "a", Timestamp: time.Now(), Prompt: "old"}))

	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := repo.FindByID(ctx, tx, "u1", "a"); err != nil {
			return err
		}
		return repo.UpdateTitle(ctx, tx, "u1", "a", "new")
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, nil, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Prompt)

	assert.True(t, errors.Is(repo.UpdateTitle(ctx, nil, "u1", "missing", "x"), domain.ErrNotFound))
	_, err = repo.FindByID(ctx, nil, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogRepo_TxRollback(t *testing.T) {
	ctx := context.Background()
	repo, tm := newRepo(t)
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "a", Timestamp: time.Now(), Prompt: "old"}))

	boom := errors.New("boom")
	err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, repo.UpdateTitle(ctx, tx, "u1", "a", "new"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.FindByID(ctx, nil, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, "old", got.Prompt)
}

func TestLogRepo_DeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	now := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "old", Timestamp: now.Add(-72 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, nil, &model.Log{UserID: "u1", ChatID: "new", Timestamp: now}))

	require.NoError(t, repo.Delete(ctx, nil, "u1", "missing"))

	n, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, repo.Delete(ctx, nil, "u1", "new"))
	logs, err := repo.ListByUser(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestLogRepo_RejectsForeignExecutor(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.Delete(context.Background(), "not-a-db", "u1", "a")
	assert.ErrorIs(t, err, domain.ErrInvalidExecContext)
}
