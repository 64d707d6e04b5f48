package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
)

const (
	selectUserQuery = `
SELECT id, name, email, role, unit_id, is_active
FROM users`

	selectUserByIDQuery = selectUserQuery + `
WHERE id = $1`

	selectActiveUsersByUnitQuery = selectUserQuery + `
WHERE unit_id = $1 AND is_active
ORDER BY name, id`
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) user.Repository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	return scanUser(tx.QueryRow(ctx, selectUserByIDQuery, id))
}

func (r *UserRepository) ListActiveByUnit(ctx context.Context, unitID int64) ([]*user.User, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectActiveUsersByUnitQuery, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// scanUser normalizes the stored role; unrecognized spellings become an empty role.
func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.UnitID, &u.IsActive); err != nil {
		return nil, err
	}
	if normalized, ok := user.NormalizeRole(role); ok {
		u.Role = normalized
	}
	return &u, nil
}
