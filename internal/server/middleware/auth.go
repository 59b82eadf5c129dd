package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
	"github.com/bachecahq/bacheca/internal/service"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "session_id"

type contextKeyAuth string

// AuthUserKey is the context key for the authenticated user.
const AuthUserKey contextKeyAuth = "auth_user"

// Authenticate validates the request's session cookie and attaches the
// resolved user to the request context. Requests with no cookie, an unknown
// token, or an expired session get a 401 envelope.
func Authenticate(authSvc *service.AuthService, msgs messages.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = c.Value
			}

			user, err := authSvc.Validate(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, msgs.Resolve(messages.NotAuthenticated))
				return
			}

			ctx := context.WithValue(r.Context(), AuthUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces admin-level access. Must run after Authenticate.
func RequireAdmin(msgs messages.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil || !user.IsAdmin {
				writeAuthError(w, http.StatusForbidden, msgs.Resolve(messages.AccessDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser extracts the authenticated user from the context. Returns nil for
// unauthenticated requests.
func GetUser(ctx context.Context) *model.User {
	if u, ok := ctx.Value(AuthUserKey).(*model.User); ok {
		return u
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
