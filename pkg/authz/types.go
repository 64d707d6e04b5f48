package authz

import (
	"strings"
)

const (
	rolePrefix       = "role"
	subjectSeparator = ":"
)

// Request asks whether Subject holds Permission.
type Request struct {
	Subject    string
	Permission string
	// UserID is carried for logging only; decisions are made on Subject.
	UserID int64
}

// NewRequest constructs a Request for a role subject.
func NewRequest(role, permission string, userID int64) Request {
	return Request{
		Subject:    SubjectForRole(role),
		Permission: NormalizePermission(permission),
		UserID:     userID,
	}
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = "anonymous"
	}
	if strings.HasPrefix(role, rolePrefix+subjectSeparator) {
		return role
	}
	return rolePrefix + subjectSeparator + role
}

// NormalizePermission upper-cases and trims a permission code.
func NormalizePermission(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
