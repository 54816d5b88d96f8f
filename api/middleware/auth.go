package middleware

import (
	"net/http"
	"strings"

	"github.com/souqline/souqline-backend/api/responses"
	"github.com/souqline/souqline-backend/pkg/actor"
	pkgauth "github.com/souqline/souqline-backend/pkg/auth"
	"github.com/souqline/souqline-backend/pkg/config"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the actor.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			act := claims.Actor()
			ctx := actor.WithContext(r.Context(), act)

			if logg != nil {
				ctx = logg.WithUserID(ctx, act.UserID.String())
				ctx = logg.WithActorRole(ctx, string(act.Role))
				if act.BranchID != nil {
					ctx = logg.WithBranchID(ctx, act.BranchID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
