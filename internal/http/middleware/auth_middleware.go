package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/http/response"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

type contextKey string

const userContextKey contextKey = "user"

// SessionGate authenticates requests by the session cookie. The user is
// loaded on every request, so a deleted account locks out immediately even
// though the token itself is stateless.
func SessionGate(tokens *security.SessionTokenManager, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			if raw == "" {
				observability.RecordSessionGate(r.Context(), "missing_cookie")
				response.Error(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				observability.RecordSessionGate(r.Context(), "invalid_token")
				response.Error(w, r, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			id, err := bson.ObjectIDFromHex(claims.Subject)
			if err != nil {
				observability.RecordSessionGate(r.Context(), "invalid_token")
				response.Error(w, r, http.StatusUnauthorized, "Invalid or expired session")
				return
			}
			user, err := users.FindByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					observability.RecordSessionGate(r.Context(), "user_gone")
					response.Error(w, r, http.StatusUnauthorized, "Invalid or expired session")
					return
				}
				observability.RecordSessionGate(r.Context(), "error")
				response.Error(w, r, http.StatusInternalServerError, "Something went wrong")
				return
			}
			if !user.Verified {
				observability.RecordSessionGate(r.Context(), "unverified")
				response.Error(w, r, http.StatusForbidden, "Email is not verified")
				return
			}
			observability.RecordSessionGate(r.Context(), "allowed")
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser attaches user the way SessionGate does for authenticated
// requests.
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(*domain.User)
	return u, ok
}
