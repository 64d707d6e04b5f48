package authz

import (
	"context"
	"fmt"
	"time"
)

// InspectionResult captures the full outcome of an authorization evaluation.
type InspectionResult struct {
	Allowed bool
	Mode    Mode
	// Trace holds the policy line that granted the request, if any.
	Trace   []string
	Latency time.Duration
	Request Request
}

// Inspect evaluates a request and returns diagnostic information for debugging.
func (s *Service) Inspect(ctx context.Context, req Request) (InspectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	allowed, trace, err := s.enforcer.EnforceEx(req.Subject, req.Permission)
	latency := time.Since(start)
	if err != nil {
		return InspectionResult{}, fmt.Errorf("authz: inspect failed: %w", err)
	}

	return InspectionResult{
		Allowed: allowed,
		Mode:    s.Mode(),
		Trace:   append([]string{}, trace...),
		Latency: latency,
		Request: req,
	}, nil
}
