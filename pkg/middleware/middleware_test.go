package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/pkg/composables"
	"github.com/iota-uz/taskgate/pkg/httpapi"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestWithLogger_PropagatesRequestContext(t *testing.T) {
	r := mux.NewRouter()
	r.Use(WithLogger(quietLogger(), DefaultLoggerOptions()))

	var gotID string
	var hasStart bool
	r.HandleFunc("/x", func(w http.ResponseWriter, r *http.Request) {
		gotID = composables.UseRequestID(r.Context())
		_, hasStart = RequestStart(r.Context())
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, "fixed-id", gotID)
	require.True(t, hasStart)
	require.Equal(t, "fixed-id", rec.Header().Get("X-Request-Id"))
	require.Equal(t, `{"a":1}`, rec.Body.String())
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	r := mux.NewRouter()
	r.Use(WithLogger(quietLogger(), DefaultLoggerOptions()))
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)
	require.NotEmpty(t, body.Meta["request_id"])
}

func TestWithIdentity(t *testing.T) {
	resolver := HeaderIdentityResolver{UserIDHeader: "X-User", RoleHeader: "X-Role", UnitHeader: "X-Unit"}
	var got composables.Identity
	var gotErr error
	h := WithIdentity(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = composables.UseIdentity(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "42")
	req.Header.Set("X-Role", "SUPERVISOR")
	req.Header.Set("X-Unit", " Finance ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NoError(t, gotErr)
	require.Equal(t, composables.Identity{UserID: 42, Role: "SUPERVISOR", UnitName: "Finance"}, got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, gotErr, composables.ErrNoIdentity)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("X-User", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, bad)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerPeriod: 1, Period: time.Minute}, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNewRedisStore_RejectsBadURL(t *testing.T) {
	_, err := NewRedisStore("redis://localhost:6379/not-a-db")
	require.Error(t, err)
}
