package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/toothdoctor-api/internal/apperr"
	"github.com/wolfman30/toothdoctor-api/internal/identity"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// PrincipalResolver maps an authenticated email onto a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, email string) (*identity.Principal, error)
}

// Authenticate verifies the HS256 bearer token, resolves its email claim and
// stores the principal on the request context.
func Authenticate(secret string, resolver PrincipalResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				apperr.WriteJSON(w, apperr.Unauthorized("authentication disabled"))
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				apperr.WriteJSON(w, apperr.Unauthorized("unauthorized"))
				return
			}
			claims, err := identity.ParseToken(strings.TrimPrefix(auth, "Bearer "), secret)
			if err != nil {
				apperr.WriteJSON(w, apperr.Unauthorized("unauthorized"))
				return
			}

			p, err := resolver.Resolve(r.Context(), claims.Email)
			if errors.Is(err, identity.ErrUserNotFound) {
				apperr.WriteJSON(w, apperr.NotFound("user not found"))
				return
			}
			if err != nil {
				logger.Error("failed to resolve principal", "error", err)
				apperr.WriteJSON(w, apperr.Internal(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		})
	}
}
