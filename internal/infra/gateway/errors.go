package gateway

import (
	"errors"
	"net/http"

	"codecraft-ai/internal/domain"
)

// Error is a non-success response from the gateway. Its message is the
// server-provided detail, or the operation's generic fallback.
type Error struct {
	Op     string
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

// Unwrap maps well-known statuses to domain sentinels so callers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrGenerationInFlight
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return domain.ErrInvalidArgument
	}
	return nil
}

// StreamError is a transport failure after the response stream had started.
// Partial holds the text delivered before the failure.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// Detail returns the user-facing message for err.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Detail
	}
	var se *StreamError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}

type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

func newError(op string, status int, body *errorBody, fallback string) *Error {
	detail := fallback
	if body != nil && body.Detail != "" {
		detail = body.Detail
	}
	return &Error{Op: op, Status: status, Detail: detail}
}
