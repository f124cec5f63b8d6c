package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	checks["shells"] = map[string]any{
		"active": s.registry.Len(),
		"status": "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()

	metrics := map[string]int64{
		"planner_http_requests_total":                traceMetrics.TotalRequests,
		"planner_http_server_errors_total":           traceMetrics.ServerErrors,
		"planner_http_response_time_microseconds":    traceMetrics.AverageResponseTime,
		"planner_auth_rate_limited_total":            rateLimitMetrics.TotalHits,
		"planner_auth_rate_limit_clients":            rateLimitMetrics.ClientCount,
		"planner_security_suspicious_requests_total": securityMetrics.SuspiciousRequests,
		"planner_security_invalid_ip_total":          securityMetrics.InvalidIPAttempts,
		"planner_shells_active":                      int64(s.registry.Len()),
		"planner_chart_cache_entries":                int64(s.charts.Cache().Size()),
		"planner_uptime_seconds":                     int64(time.Since(s.started).Seconds()),
	}

	for rule, n := range securityMetrics.ByRule {
		metrics["planner_security_rule_"+rule+"_total"] = n
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, name := range names {
		fmt.Fprintf(w, "%s %d\n", name, metrics[name])
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
