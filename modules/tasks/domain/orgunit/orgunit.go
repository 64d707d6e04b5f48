package orgunit

import "context"

// OrganizationalUnit is the isolation boundary for every read and write.
type OrganizationalUnit struct {
	ID   int64
	Name string
	Code string
}

type Repository interface {
	// GetByName matches case-insensitively; missing units are pgx.ErrNoRows.
	GetByName(ctx context.Context, name string) (*OrganizationalUnit, error)
}
