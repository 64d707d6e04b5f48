package authz

import (
	"fmt"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

const errorCodeForbidden = "AUTHZ_FORBIDDEN"

// forbiddenError builds a standardized error for denied policies.
func forbiddenError(req Request) *serrors.Error {
	return serrors.Forbidden(errorCodeForbidden, "permission denied").
		WithMeta("permission", req.Permission).
		WithMeta("subject", req.Subject)
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
