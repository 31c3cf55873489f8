// Package auth holds the signed-in identity of a front end. A Session is created
// at process start, passed to everything that needs the current user, and torn
// down by SignOut.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"codecraft-ai/internal/domain"
)

// Claims is the identity token payload. Subject carries the stable user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID    string
	Name      string
	ExpiresAt time.Time
}

// TokenSource yields identity tokens. Sources that can mint fresh tokens are
// asked again when the current one is about to expire.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, e.g. from config or the environment.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

const refreshLeeway = 30 * time.Second

type Session struct {
	mu        sync.RWMutex
	identity  *Identity
	token     string
	src       TokenSource
	loading   bool
	listeners []func(Identity, bool)
	now       func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

// SignIn obtains a token from src and adopts the identity it carries.
// The token signature is not checked here; the gateway verifies it.
func (s *Session) SignIn(ctx context.Context, src TokenSource) (Identity, error) {
	if src == nil {
		return Identity{}, fmt.Errorf("sign in: %w", domain.ErrInvalidArgument)
	}
	s.setLoading(true)
	defer s.setLoading(false)

	tok, err := src.Token(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("sign in: %w", err)
	}
	id, err := ParseIdentity(tok, s.now())
	if err != nil {
		return Identity{}, fmt.Errorf("sign in: %w", err)
	}

	s.mu.Lock()
	s.identity = &id
	s.token = tok
	s.src = src
	listeners := append([]func(Identity, bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(id, true)
	}
	return id, nil
}

// SignOut forgets the identity and notifies listeners. Safe to call when signed out.
func (s *Session) SignOut() {
	s.mu.Lock()
	prev := s.identity
	s.identity = nil
	s.token = ""
	s.src = nil
	listeners := append([]func(Identity, bool){}, s.listeners...)
	s.mu.Unlock()

	if prev == nil {
		return
	}
	for _, fn := range listeners {
		fn(*prev, false)
	}
}

func (s *Session) CurrentUser() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// Token returns the bearer token for the current identity, refreshing it from
// the source when it is close to expiry.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	id, tok, src := s.identity, s.token, s.src
	s.mu.RUnlock()
	if id == nil {
		return "", domain.ErrUnauthenticated
	}
	if id.ExpiresAt.IsZero() || s.now().Add(refreshLeeway).Before(id.ExpiresAt) {
		return tok, nil
	}
	if _, static := src.(StaticToken); static {
		return tok, nil
	}

	fresh, err := src.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	next, err := ParseIdentity(fresh, s.now())
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if next.UserID != id.UserID {
		return "", fmt.Errorf("refresh token: %w", domain.ErrForbidden)
	}
	s.mu.Lock()
	if s.identity != nil && s.identity.UserID == next.UserID {
		s.identity = &next
		s.token = fresh
	}
	s.mu.Unlock()
	return fresh, nil
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// OnChange registers fn to be called after sign-in and sign-out.
func (s *Session) OnChange(fn func(id Identity, signedIn bool)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// ParseIdentity reads the subject and expiry from an unverified token.
func ParseIdentity(token string, now time.Time) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, domain.ErrInvalidToken
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	id := Identity{UserID: claims.Subject, Name: claims.Name}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(id.ExpiresAt) {
			return Identity{}, fmt.Errorf("%w: token expired", domain.ErrInvalidToken)
		}
	}
	return id, nil
}

// IsAuthError reports whether err means the caller has no usable identity.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrInvalidToken)
}
