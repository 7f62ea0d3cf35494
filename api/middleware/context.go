package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxUserEmail contextKey = "user_email"
	ctxUserName  contextKey = "user_name"
)

// Identity is the authenticated learner attached by Auth or OptionalAuth.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext returns the authenticated learner, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return Identity{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Identity{}, false
	}
	email, _ := ctx.Value(ctxUserEmail).(string)
	name, _ := ctx.Value(ctxUserName).(string)
	return Identity{UserID: id, Email: email, Name: name}, true
}

// WithIdentity injects the learner identity into the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, identity.UserID.String())
	ctx = context.WithValue(ctx, ctxUserEmail, identity.Email)
	return context.WithValue(ctx, ctxUserName, identity.Name)
}
