package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/taskgate/pkg/composables"
)

// IdentityResolver extracts the already-verified caller from a request.
// ok=false means no identity was presented.
type IdentityResolver interface {
	Resolve(r *http.Request) (identity composables.Identity, ok bool, err error)
}

// HeaderIdentityResolver trusts headers injected by the upstream credential verifier.
type HeaderIdentityResolver struct {
	UserIDHeader string
	RoleHeader   string
	UnitHeader   string
}

func (h HeaderIdentityResolver) Resolve(r *http.Request) (composables.Identity, bool, error) {
	raw := strings.TrimSpace(r.Header.Get(h.UserIDHeader))
	if raw == "" {
		return composables.Identity{}, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return composables.Identity{}, false, errInvalidIdentity
	}
	return composables.Identity{
		UserID:   id,
		Role:     strings.TrimSpace(r.Header.Get(h.RoleHeader)),
		UnitName: strings.TrimSpace(r.Header.Get(h.UnitHeader)),
	}, true, nil
}

// WithIdentity binds the resolved identity to the request context. Requests
// without an identity pass through; the service layer rejects them.
func WithIdentity(resolver IdentityResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok, err := resolver.Resolve(r)
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Warn("rejecting malformed identity")
				writeUnauthenticated(w, r)
				return
			}
			if ok {
				r = r.WithContext(composables.WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}
