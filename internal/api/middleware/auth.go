package middleware

import (
	"net/http"
	"strings"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/auth"
	"github.com/Cheertaboi/nexu-webshop/internal/models"
)

type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// Authenticate stores the bearer token's identity in the request context.
// Requests without a token continue as anonymous; a bad token is rejected.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || v == nil {
				respond.Error(w, r, apperrors.New(apperrors.CodeUnauthenticated, "invalid authorization header"))
				return
			}
			id, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				respond.Error(w, r, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IdentityFrom(r.Context()).Authenticated() {
			respond.Error(w, r, apperrors.New(apperrors.CodeUnauthenticated, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFrom(r.Context())
		if !id.Authenticated() {
			respond.Error(w, r, apperrors.New(apperrors.CodeUnauthenticated, "authentication required"))
			return
		}
		if !id.IsAdmin() {
			respond.Error(w, r, apperrors.New(apperrors.CodeForbidden, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
