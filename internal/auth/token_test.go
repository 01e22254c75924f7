package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	tokens, err := NewTokens("secret", clk)
	require.NoError(t, err)

	token, err := tokens.Issue("user-1")
	require.NoError(t, err)

	clk.Advance(23 * time.Hour)
	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	clk.Advance(2 * time.Hour)
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_Verify(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	tokens, err := NewTokens("secret", clock.NewFixed(now))
	require.NoError(t, err)
	other, err := NewTokens("other-secret", clock.NewFixed(now))
	require.NoError(t, err)

	foreign, err := other.Issue("user-1")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{UserID: "user-1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: ErrMissingToken},
		{name: "garbage", token: "not.a.jwt", wantErr: ErrInvalidToken},
		{name: "wrong secret", token: foreign, wantErr: ErrInvalidToken},
		{name: "none algorithm", token: noneAlg, wantErr: ErrInvalidToken},
		{name: "no expiry", token: noExpiry, wantErr: ErrInvalidToken},
		{name: "no user id", token: noUser, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokens_WithTTL(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	tokens, err := NewTokens("secret", clk, WithTTL(time.Minute))
	require.NoError(t, err)

	token, err := tokens.Issue("user-2")
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokens("", clock.NewSystem())
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: ErrMissingToken},
		{name: "empty bearer", header: "Bearer   ", wantErr: ErrMissingToken},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidToken},
		{name: "no scheme", header: "abc", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := TokenFromRequest(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
