//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/domain/model"
	"codecraft-ai/internal/usecase"
)

func TestLogUseCase_SaveAndList(t *testing.T) {
	ctx := context.Background()
	repo := newMemLogRepo()
	uc := usecase.NewLogUseCase(repo, NewMockTxManager(), newTestLogger())

	for _, l := range seedLogs() {
		l := l
		if err := uc.Save(ctx, &l); err != nil {
			t.Fatalf("Save(%s) failed: %v", l.ChatID, err)
		}
	}

	logs, err := uc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := chatIDs(logs); len(got) != 3 || got[0] != "b" || got[2] != "a" {
		t.Fatalf("want [b c a], got %v", got)
	}

	empty, err := uc.List(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("want non-nil empty list, got %v, %v", empty, err)
	}
}

func TestLogUseCase_SaveValidation(t *testing.T) {
	uc := usecase.NewLogUseCase(newMemLogRepo(), nil, newTestLogger())
	cases := []struct {
		name  string
		log   model.Log
		field string
	}{
		{"missing user", model.Log{ChatID: "c", Timestamp: time.Now()}, "user_id"},
		{"missing chat", model.Log{UserID: "u", Timestamp: time.Now()}, "chat_id"},
		{"missing timestamp", model.Log{UserID: "u", ChatID: "c"}, "timestamp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := uc.Save(context.Background(), &tc.log)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
			var fe *model.FieldError
			if !errors.As(err, &fe) || fe.Field != tc.field {
				t.Fatalf("want field %s, got %v", tc.field, err)
			}
		})
	}
}

func TestLogUseCase_SaveRepoError(t *testing.T) {
	repo := newMemLogRepo()
	repo.saveErr = errors.New("db down")
	uc := usecase.NewLogUseCase(repo, nil, newTestLogger())
	l := model.Log{UserID: "u", ChatID: "c", Timestamp: time.Now()}
	if err := uc.Save(context.Background(), &l); !errors.Is(err, repo.saveErr) {
		t.Fatalf("want wrapped repo error, got %v", err)
	}
}

func TestLogUseCase_UpdateTitle(t *testing.T) {
	ctx := context.Background()
	repo := newMemLogRepo()
	tm := NewMockTxManager()
	uc := usecase.NewLogUseCase(repo, tm, newTestLogger())
	l := model.Log{UserID: "u", ChatID: "c", Timestamp: time.Now(), Prompt: "old"}
	_ = uc.Save(ctx, &l)

	if err := uc.UpdateTitle(ctx, "u", "c", "  new title  "); err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	got, _ := repo.FindByID(ctx, nil, "u", "c")
	if got.Prompt != "new title" {
		t.Fatalf("want trimmed title, got %q", got.Prompt)
	}
	if tm.calls != 1 {
		t.Fatalf("want one transaction, got %d", tm.calls)
	}

	if err := uc.UpdateTitle(ctx, "u", "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := uc.UpdateTitle(ctx, "u", "c", "   "); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestLogUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemLogRepo()
	uc := usecase.NewLogUseCase(repo, nil, newTestLogger())
	l := model.Log{UserID: "u", ChatID: "c", Timestamp: time.Now()}
	_ = uc.Save(ctx, &l)

	if err := uc.Delete(ctx, "u", "c"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.FindByID(ctx, nil, "u", "c"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("log still present: %v", err)
	}
	if err := uc.Delete(ctx, "", "c"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestLogUseCase_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := newMemLogRepo()
	uc := usecase.NewLogUseCase(repo, nil, newTestLogger())
	now := time.Now()
	for i, age := range []time.Duration{time.Hour, 48 * time.Hour, 72 * time.Hour} {
		l := model.Log{UserID: "u", ChatID: string(rune('a' + i)), Timestamp: now.Add(-age)}
		_ = uc.Save(ctx, &l)
	}

	n, err := uc.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 purged, got %d", n)
	}
	if n, _ := uc.PurgeOlderThan(ctx, 0); n != 0 {
		t.Fatalf("zero age must be a no-op, got %d", n)
	}
	left, _ := uc.List(ctx, "u")
	if len(left) != 1 || left[0].ChatID != "a" {
		t.Fatalf("want only the recent log left, got %v", chatIDs(left))
	}
}
