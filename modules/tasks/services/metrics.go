package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submittedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "change_requests",
		Name:      "submitted_total",
		Help:      "Change requests submitted, by change type and outcome (pending or auto_approved).",
	}, []string{"change_type", "outcome"})

	decidedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "change_requests",
		Name:      "decided_total",
		Help:      "Change requests decided, by change type and decision.",
	}, []string{"change_type", "decision"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Write conflicts broken down by kind.",
	}, []string{"kind"})
)

func recordSubmitted(changeType string, autoApproved bool) {
	outcome := "pending"
	if autoApproved {
		outcome = "auto_approved"
	}
	submittedRequests.WithLabelValues(changeType, outcome).Inc()
}

func recordDecided(changeType, decision string) {
	decidedRequests.WithLabelValues(changeType, decision).Inc()
}

func recordWriteConflict(kind string) {
	if kind == "" {
		kind = "other"
	}
	writeConflicts.WithLabelValues(kind).Inc()
}
