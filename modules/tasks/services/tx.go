package services

import (
	"context"
	"time"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/orgunit"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
)

// Transactor runs fn atomically. Implementations bind the transaction to the
// context passed to fn and must reuse one already bound to ctx.
type Transactor interface {
	InTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Repositories bundles the storage contracts the module depends on.
type Repositories struct {
	Units          orgunit.Repository
	Users          user.Repository
	Tasks          task.Repository
	ChangeRequests changerequest.Repository
	Tx             Transactor
}

// Clock returns the current instant. Services default to UTC wall time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

func inTx[T any](ctx context.Context, tx Transactor, fn func(txCtx context.Context) (T, error)) (T, error) {
	var out T
	err := tx.InTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = fn(txCtx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
