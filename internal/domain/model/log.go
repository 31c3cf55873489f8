package model

import (
	"sort"
	"strings"
	"time"

	"codecraft-ai/internal/domain"
)

// Log is the persisted record of a conversation's first completed exchange.
// Prompt doubles as the conversation title.
type Log struct {
	UserID       string    `json:"user_id"`
	ChatID       string    `json:"chat_id"`
	Timestamp    time.Time `json:"timestamp"`
	Prompt       string    `json:"prompt"`
	Explanation  string    `json:"explanation"`
	LearningMode bool      `json:"learning_mode"`
}

func (l *Log) Validate() error {
	switch {
	case strings.TrimSpace(l.UserID) == "":
		return fieldError("user_id")
	case strings.TrimSpace(l.ChatID) == "":
		return fieldError("chat_id")
	case l.Timestamp.IsZero():
		return fieldError("timestamp")
	}
	return nil
}

// SortLogsNewestFirst orders logs by timestamp, descending. Ties keep their input order.
func SortLogsNewestFirst(logs []Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})
}

type FieldError struct{ Field string }

func (e *FieldError) Error() string { return e.Field + " is required" }

func (e *FieldError) Unwrap() error { return domain.ErrInvalidArgument }

func fieldError(f string) error { return &FieldError{Field: f} }
