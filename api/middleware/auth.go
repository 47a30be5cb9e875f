package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ioproxxy/mkulima-express-sub000/api/responses"
	pkgAuth "github.com/ioproxxy/mkulima-express-sub000/pkg/auth"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/config"
	pkgerrors "github.com/ioproxxy/mkulima-express-sub000/pkg/errors"
	"github.com/ioproxxy/mkulima-express-sub000/pkg/logger"
)

// Auth validates a bearer token, checks the access id is still logged in and seeds the
// request context with the resulting session.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), sess, logg)))
		})
	}
}

// OptionalAuth attaches a session when a valid token is presented and lets anonymous
// requests through untouched. A bad token is still rejected.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := authenticate(r, cfg, verifier)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), sess, logg)))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*session.Session, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		ok, err := verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "validate session")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return &session.Session{UserID: claims.UserID, Role: claims.Role, AccessID: claims.ID}, nil
}

func withActor(ctx context.Context, sess *session.Session, logg *logger.Logger) context.Context {
	ctx = WithSession(ctx, sess)
	if logg != nil {
		ctx = logg.WithUserID(ctx, sess.UserID.String())
		ctx = logg.WithActorRole(ctx, string(sess.Role))
	}
	return ctx
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
