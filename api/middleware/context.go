package middleware

import (
	"context"

	"github.com/ioproxxy/mkulima-express-sub000/pkg/auth/session"
)

type contextKey string

const ctxSession contextKey = "session"

// WithSession stores the authenticated actor on the request context.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}

// SessionFromContext returns the actor set by Auth, or nil on public routes.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

func UserIDFromContext(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.UserID.String()
	}
	return ""
}
