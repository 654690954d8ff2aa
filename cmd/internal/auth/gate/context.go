package gate

import (
	"context"

	"chatpad/cmd/identity"
)

type userKey struct{}

func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user attached by Require or Trace.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userKey{}).(identity.User)
	return u, ok
}
