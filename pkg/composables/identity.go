package composables

import (
	"context"
	"errors"

	"github.com/iota-uz/taskgate/pkg/constants"
)

var ErrNoIdentity = errors.New("no identity found in context")

// Identity is the caller as asserted by the external credential verifier.
// Role is informational; permissions are always resolved from the stored user.
type Identity struct {
	UserID   int64
	Role     string
	UnitName string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, constants.IdentityKey, identity)
}

func UseIdentity(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(constants.IdentityKey).(Identity)
	if !ok || identity.UserID == 0 {
		return Identity{}, ErrNoIdentity
	}
	return identity, nil
}
