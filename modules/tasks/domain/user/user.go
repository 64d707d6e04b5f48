package user

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Role string

const (
	RoleStandard   Role = "STANDARD"
	RoleSupervisor Role = "SUPERVISOR"
)

// roleAliases maps folded spellings to roles. Keys are lower case without accents.
var roleAliases = map[string]Role{
	"standard":           RoleStandard,
	"estandar":           RoleStandard,
	"usuario estandar":   RoleStandard,
	"standard user":      RoleStandard,
	"supervisor":         RoleSupervisor,
	"usuario supervisor": RoleSupervisor,
	"supervisor user":    RoleSupervisor,
}

// NormalizeRole resolves a stored or asserted role name. Matching ignores
// case, accents, underscores and repeated spaces.
func NormalizeRole(raw string) (Role, bool) {
	role, ok := roleAliases[fold(raw)]
	return role, ok
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(strings.ToLower(out), "_", " ")
	return strings.Join(strings.Fields(out), " ")
}

func (r Role) IsPrivileged() bool {
	return r == RoleSupervisor
}

type User struct {
	ID       int64
	Name     string
	Email    string
	Role     Role
	UnitID   int64
	IsActive bool
}

type Repository interface {
	// GetByID returns pgx.ErrNoRows for unknown users.
	GetByID(ctx context.Context, id int64) (*User, error)
	// ListActiveByUnit returns active members ordered by name.
	ListActiveByUnit(ctx context.Context, unitID int64) ([]*User, error)
}
