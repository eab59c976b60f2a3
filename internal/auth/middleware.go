package auth

import (
	"log/slog"
	"net/http"

	"github.com/mosaic-cms/mosaic-auth/internal/authz"
	"github.com/mosaic-cms/mosaic-auth/internal/shared"
)

// Middleware wires the gate into HTTP handler chains.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

// RequirePrivileges ensures the caller is authenticated and that every role
// of the caller allows every listed permission. The resolved actor is placed
// in the request context for downstream handlers.
func (m Middleware) RequirePrivileges(permissions ...authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, allowed, err := m.Gate.Allowed(r, permissions)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("auth gate", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), &shared.Actor{
				SubjectID: user.ID,
				Roles:     user.RoleIdents(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
