package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", serrors.InvalidInput("BAD_PRIORITY", "bad priority"), http.StatusBadRequest, "BAD_PRIORITY"},
		{"invalid state", serrors.InvalidState("UNIT_UNRESOLVED", "no unit"), http.StatusBadRequest, "UNIT_UNRESOLVED"},
		{"unauthenticated", serrors.Unauthenticated("UNAUTHENTICATED", "no identity"), http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", serrors.Forbidden("FORBIDDEN", "nope"), http.StatusForbidden, "FORBIDDEN"},
		{"not found", serrors.NotFound("TASK_NOT_FOUND", "missing"), http.StatusNotFound, "TASK_NOT_FOUND"},
		{"conflict", serrors.Conflict("ALREADY_DECIDED", "decided"), http.StatusConflict, "ALREADY_DECIDED"},
		{"raw", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteServiceError(rec, tc.err, "req-1"))
			require.Equal(t, tc.status, rec.Code)

			var body ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Code)
			require.Equal(t, "req-1", body.Meta["request_id"])
			require.NotContains(t, body.Message, "connection reset")
		})
	}
}

func TestWriteServiceError_KeepsFieldMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteServiceError(rec, serrors.NewFieldRequiredError("title"), ""))

	var body ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "title", body.Meta["field"])
	_, hasRequestID := body.Meta["request_id"]
	require.False(t, hasRequestID)
}
