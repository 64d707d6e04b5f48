package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/pkg/authz"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

// Principal is the caller after the gate resolved them against storage.
type Principal struct {
	UserID   int64
	Role     user.Role
	UnitID   int64
	UnitName string
}

// PermissionGate resolves permissions from the stored role on every call, so
// role changes apply to the very next request.
type PermissionGate struct {
	users user.Repository
	authz *authz.Service
}

func NewPermissionGate(users user.Repository, az *authz.Service) *PermissionGate {
	return &PermissionGate{users: users, authz: az}
}

// PermissionsFor returns the current permission codes of userID. Unknown and
// inactive users hold none.
func (g *PermissionGate) PermissionsFor(ctx context.Context, userID int64) ([]string, error) {
	u, err := g.activeUser(ctx, userID)
	if err != nil || u == nil {
		return []string{}, err
	}
	return g.authz.PermissionsFor(string(u.Role))
}

// Require checks the caller holds code and returns them as a Principal.
func (g *PermissionGate) Require(ctx context.Context, code string) (*Principal, error) {
	identity, err := composables.UseIdentity(ctx)
	if err != nil {
		return nil, serrors.New(serrors.KindUnauthenticated, "UNAUTHENTICATED", "authentication required", err)
	}
	u, err := g.activeUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		composables.UseLogger(ctx).WithField("user_id", identity.UserID).Warn("unknown or inactive user denied")
		return nil, serrors.Forbidden("USER_INACTIVE", "user is unknown or inactive").WithMeta("permission", code)
	}
	if err := g.authz.Authorize(ctx, authz.NewRequest(string(u.Role), code, u.ID)); err != nil {
		return nil, err
	}
	return &Principal{
		UserID:   u.ID,
		Role:     u.Role,
		UnitID:   u.UnitID,
		UnitName: identity.UnitName,
	}, nil
}

func (g *PermissionGate) activeUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := g.users.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return u, nil
}
