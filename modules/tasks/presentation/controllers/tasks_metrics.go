package controllers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of Tasks API requests broken down by endpoint and result.",
	}, []string{"endpoint", "result"})

	tasksAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tasks",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for Tasks API requests.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"endpoint", "result"})
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		result := "2xx"
		switch {
		case rec.status >= 500:
			result = "5xx"
		case rec.status >= 400:
			result = "4xx"
		}
		tasksAPIRequests.WithLabelValues(endpoint, result).Inc()
		tasksAPILatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}
