package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iota-uz/taskgate/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// StatusForKind maps an error kind onto its HTTP status.
func StatusForKind(kind serrors.Kind) int {
	switch kind {
	case serrors.KindInvalidInput, serrors.KindInvalidState:
		return http.StatusBadRequest
	case serrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case serrors.KindForbidden:
		return http.StatusForbidden
	case serrors.KindNotFound:
		return http.StatusNotFound
	case serrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError renders err as an ErrorEnvelope. Unclassified errors are
// reported as INTERNAL without leaking their message.
func WriteServiceError(w http.ResponseWriter, err error, requestID string) error {
	meta := map[string]string{}
	var se *serrors.Error
	if !errors.As(err, &se) {
		if requestID != "" {
			meta["request_id"] = requestID
		}
		return WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", meta)
	}
	for k, v := range se.Meta {
		meta[k] = v
	}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	if len(meta) == 0 {
		meta = nil
	}
	return WriteError(w, StatusForKind(se.Kind), se.Code, se.Message, meta)
}
