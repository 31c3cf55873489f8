package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"codecraft-ai/internal/auth"
	"codecraft-ai/internal/domain"
	"codecraft-ai/internal/infra/logging"
)

// ===== Identity tokens =====

var errMissingHeader = errors.New("authorization header missing")

// AuthManager mints and verifies HS256 identity tokens whose subject is the user id.
type AuthManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthManager(secret, issuer string, ttl time.Duration) *AuthManager {
	return &AuthManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (a *AuthManager) Mint(userID, name string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrInvalidArgument
	}
	now := a.now()
	claims := auth.Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// TokenSource mints a fresh token for userID on every call.
func (a *AuthManager) TokenSource(userID, name string) auth.TokenSource {
	return auth.TokenSourceFunc(func(context.Context) (string, error) {
		return a.Mint(userID, name)
	})
}

func (a *AuthManager) Verify(tok string) (*auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &auth.Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// ParseFromRequest reads "Authorization: Bearer <jwt>".
func (a *AuthManager) ParseFromRequest(r *http.Request) (*auth.Claims, error) {
	hdr := strings.TrimSpace(r.Header.Get("Authorization"))
	if hdr == "" {
		return nil, errMissingHeader
	}
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return nil, domain.ErrInvalidToken
	}
	return a.Verify(strings.TrimSpace(hdr[7:]))
}

// ===== Middleware =====

type userKey struct{}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func (a *AuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			detail := "Invalid token"
			if errors.Is(err, errMissingHeader) {
				detail = "Authorization header missing"
			}
			WriteDetail(w, http.StatusUnauthorized, detail)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, claims.Subject)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user id set by Middleware.
func UserFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userKey{}).(string)
	return v, ok && v != ""
}

// RequireUser checks that the path or body user id matches the token subject.
func RequireUser(ctx context.Context, userID string) error {
	uid, ok := UserFromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}
	if uid != userID {
		return domain.ErrForbidden
	}
	return nil
}

// WriteDetail writes the {"detail": ...} error body clients expect.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, map[string]string{"detail": detail})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
