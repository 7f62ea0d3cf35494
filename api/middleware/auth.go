package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kineticlab/physio-academy-backend/api/responses"
	pkgAuth "github.com/kineticlab/physio-academy-backend/pkg/auth"
	"github.com/kineticlab/physio-academy-backend/pkg/config"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the learner identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := identityFromToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(attachIdentity(r, logg, identity)))
		})
	}
}

// OptionalAuth attaches the identity when a valid bearer token is present and
// otherwise lets the request through anonymously. A malformed token is still rejected.
func OptionalAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := identityFromToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(attachIdentity(r, logg, identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func identityFromToken(cfg config.JWTConfig, token string) (Identity, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject")
	}
	return Identity{
		UserID: userID,
		Email:  strings.TrimSpace(claims.Email),
		Name:   claims.DisplayName(),
	}, nil
}

func attachIdentity(r *http.Request, logg *logger.Logger, identity Identity) context.Context {
	ctx := WithIdentity(r.Context(), identity)
	if logg != nil {
		ctx = logg.WithUserID(ctx, identity.UserID.String())
	}
	return ctx
}
