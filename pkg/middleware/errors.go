package middleware

import (
	"net/http"

	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/httpapi"
	"github.com/iota-uz/taskgate/pkg/serrors"
)

var errInvalidIdentity = serrors.Unauthenticated("INVALID_IDENTITY", "identity headers are malformed")

func writeUnauthenticated(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteServiceError(w, errInvalidIdentity, composables.UseRequestID(r.Context()))
}
