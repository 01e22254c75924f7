// Package auth issues and verifies the bearer tokens handed out with orders.
// Tokens are self-contained HS256 JWTs; verification never touches storage.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	errEmptySecret  = errors.New("token secret must not be empty")
)

type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies user tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

type Option func(*Tokens)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(t *Tokens) {
		if d > 0 {
			t.ttl = d
		}
	}
}

func NewTokens(secret string, clk clock.Clock, opts ...Option) (*Tokens, error) {
	if secret == "" {
		return nil, errEmptySecret
	}
	t := &Tokens{
		secret: []byte(secret),
		ttl:    DefaultTTL,
		clock:  clk,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue returns a signed token for userID expiring after the configured TTL.
func (t *Tokens) Issue(userID string) (string, error) {
	now := t.clock.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded user id.
func (t *Tokens) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.UserID == "" {
		return "", ErrInvalidToken
	}
	return c.UserID, nil
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
