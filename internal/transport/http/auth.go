package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/cimillas/storefront/services/api/internal/auth"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type userIDKey struct{}

// Authenticate rejects requests without a valid bearer token and stores the
// verified user id in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err == nil {
				var userID string
				userID, err = verifier.Verify(token)
				if err == nil {
					ctx := context.WithValue(r.Context(), userIDKey{}, userID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
			if errors.Is(err, auth.ErrMissingToken) {
				writeError(w, http.StatusUnauthorized, codeMissingToken, auth.ErrMissingToken.Error())
				return
			}
			writeError(w, http.StatusUnauthorized, codeInvalidToken, auth.ErrInvalidToken.Error())
		})
	}
}

// UserIDFromContext returns the id stored by Authenticate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
