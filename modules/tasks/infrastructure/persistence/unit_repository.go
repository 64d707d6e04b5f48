package persistence

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules/tasks/domain/orgunit"
)

const selectUnitByNameQuery = `
SELECT id, name, code
FROM organizational_units
WHERE lower(name) = lower($1)`

type UnitRepository struct {
	pool *pgxpool.Pool
}

func NewUnitRepository(pool *pgxpool.Pool) orgunit.Repository {
	return &UnitRepository{pool: pool}
}

func (r *UnitRepository) GetByName(ctx context.Context, name string) (*orgunit.OrganizationalUnit, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	var u orgunit.OrganizationalUnit
	if err := tx.QueryRow(ctx, selectUnitByNameQuery, strings.TrimSpace(name)).Scan(&u.ID, &u.Name, &u.Code); err != nil {
		return nil, err
	}
	return &u, nil
}
