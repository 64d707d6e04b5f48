package persistence

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/repo"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Migrations returns the goose migrations of the tasks schema.
func Migrations() fs.FS {
	sub, err := fs.Sub(schemaFiles, "schema")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewRepositories wires every repository and the transactor to pool.
func NewRepositories(pool *pgxpool.Pool) services.Repositories {
	return services.Repositories{
		Units:          NewUnitRepository(pool),
		Users:          NewUserRepository(pool),
		Tasks:          NewTaskRepository(pool),
		ChangeRequests: NewChangeRequestRepository(pool),
		Tx:             NewPoolTransactor(pool),
	}
}

// PoolTransactor opens pgx transactions on a pool and binds them to the context.
type PoolTransactor struct {
	pool *pgxpool.Pool
}

func NewPoolTransactor(pool *pgxpool.Pool) *PoolTransactor {
	return &PoolTransactor{pool: pool}
}

func (t *PoolTransactor) InTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, err := composables.UsePool(ctx); err != nil {
		ctx = composables.WithPool(ctx, t.pool)
	}
	return composables.InTx(ctx, fn)
}

// conn returns the transaction bound to ctx, or pool when there is none.
func conn(ctx context.Context, pool *pgxpool.Pool) (repo.Tx, error) {
	tx, err := composables.UseTx(ctx)
	if errors.Is(err, composables.ErrNoPool) && pool != nil {
		return pool, nil
	}
	return tx, err
}
