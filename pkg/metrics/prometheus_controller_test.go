package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, c interface{ Register(*mux.Router) }, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	c.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPrometheusController_DefaultRegistry(t *testing.T) {
	c := NewPrometheusController("")
	require.Equal(t, DefaultPath, c.Key())

	rec := serve(t, c, DefaultPath)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPrometheusController_CustomGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	decided := prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks_test_decided_total", Help: "test"})
	reg.MustRegister(decided)
	decided.Inc()

	c := NewPrometheusController("/metrics", WithGatherer(reg))
	require.Equal(t, "/metrics", c.Key())

	rec := serve(t, c, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "tasks_test_decided_total 1")
	require.NotContains(t, rec.Body.String(), "go_goroutines")

	require.Equal(t, http.StatusNotFound, serve(t, c, DefaultPath).Code)
}
