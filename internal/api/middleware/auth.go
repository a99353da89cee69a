package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"shoplist/internal/common"
	"shoplist/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const UserIDCtxKey contextKey = "userID"

// RevocationChecker reports whether a user's tokens have been invalidated.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, userID string) (bool, error)
}

// Authenticator rejects requests whose context holds no valid verified token
// (it runs behind jwtauth.Verifier), then resolves the user id claim and
// stores it on the request context.
func Authenticator(revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				if errors.Is(err, jwtauth.ErrNoTokenFound) {
					common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				} else {
					common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				}
				return
			}

			if token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(r.Context(), userID)
				if err != nil {
					// Fail open: an unreachable denylist must not take the API down.
					log.Printf("revocation check failed for user %s: %v", userID, err)
				} else if revoked {
					common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user's id, if present.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}
