package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/ariastack/aria-engine/internal/models"
)

// SyntheticTelemetry serves a deterministic evidence dataset when no live
// telemetry backend is configured. Content is fixed; timestamps are anchored
// to the call time so windows stay sensible.
type SyntheticTelemetry struct{}

// NewSyntheticTelemetry constructs the degraded telemetry source.
func NewSyntheticTelemetry() *SyntheticTelemetry { return &SyntheticTelemetry{} }

// Mode identifies this connector as a deterministic substitute.
func (s *SyntheticTelemetry) Mode() models.ConnectorMode { return models.ModeDegraded }

// FetchErrorLogs returns the fixed error-log scenario for the service.
func (s *SyntheticTelemetry) FetchErrorLogs(_ context.Context, service string, _ time.Duration, limit int) ([]models.LogFinding, error) {
	now := time.Now().UTC()
	findings := []models.LogFinding{
		{
			Timestamp: now.Add(-1 * time.Minute),
			Level:     "error",
			Message:   fmt.Sprintf("FATAL [%s] Connection pool exhausted: all 100 connections in use (wait_timeout 500ms exceeded)", service),
			Count:     63,
			ErrorKind: "connection_pool_exhaustion",
			TraceID:   "trace-pool-01",
			Host:      service + "-7d9f4b",
		},
		{
			Timestamp:  now.Add(-3 * time.Minute),
			Level:      "error",
			Message:    fmt.Sprintf("ERROR [%s] DB query timeout after 4200ms on SELECT payment_id FROM orders", service),
			Count:      41,
			ErrorKind:  "timeout",
			StackTrace: "db.Query\n  pool.Acquire\n  handler.Charge",
			TraceID:    "trace-dbwait-02",
			Host:       service + "-7d9f4b",
		},
		{
			Timestamp: now.Add(-5 * time.Minute),
			Level:     "error",
			Message:   fmt.Sprintf("ERROR [%s] Retry storm: 847 retries/min exceeding safe threshold of 200", service),
			Count:     12,
			ErrorKind: "retry_storm",
			TraceID:   "trace-retry-03",
			Host:      service + "-c41a20",
		},
	}
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}
	return findings, nil
}

// FetchErrorRateSeries returns a fixed rising series bucketed over the window.
func (s *SyntheticTelemetry) FetchErrorRateSeries(_ context.Context, _ string, window, bucket time.Duration) ([]models.SeriesPoint, error) {
	if bucket <= 0 {
		bucket = 5 * time.Minute
	}
	values := []float64{2, 3, 5, 11, 24, 46, 63}
	end := time.Now().UTC()
	start := end.Add(-window)
	step := window / time.Duration(len(values))
	if step <= 0 {
		step = bucket
	}
	series := make([]models.SeriesPoint, 0, len(values))
	for i, v := range values {
		series = append(series, models.SeriesPoint{Timestamp: start.Add(time.Duration(i) * step), Value: v})
	}
	return series, nil
}

// FetchSpanSummaries returns the fixed latency breakdown.
func (s *SyntheticTelemetry) FetchSpanSummaries(_ context.Context, service string, _ time.Duration) ([]string, error) {
	return []string{
		fmt.Sprintf("DB wait time accounts for 89%% of p99 latency in %s traces.", service),
		"SELECT payment_id FROM orders: max 4180ms, avg 2333ms over 120 spans",
		"POST /charge: max 4325ms, avg 2410ms over 87 spans",
	}, nil
}

// FetchCorrelatedLogs returns fixed cross-service symptoms for the known
// trace ids.
func (s *SyntheticTelemetry) FetchCorrelatedLogs(_ context.Context, traceIDs []string, excludeService string, _ time.Duration) ([]models.LogFinding, error) {
	if len(traceIDs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	return []models.LogFinding{
		{
			Timestamp: now.Add(-2 * time.Minute),
			Level:     "error",
			Message:   fmt.Sprintf("ERROR [checkout-svc] Upstream call to %s failed: context deadline exceeded", excludeService),
			ErrorKind: "timeout",
			TraceID:   traceIDs[0],
			Host:      "checkout-svc-1f20aa",
		},
		{
			Timestamp: now.Add(-4 * time.Minute),
			Level:     "warn",
			Message:   fmt.Sprintf("WARN [order-api] Slow response from %s: 3900ms (budget 800ms)", excludeService),
			TraceID:   traceIDs[0],
			Host:      "order-api-88e310",
		},
	}, nil
}

// FetchRecentDeploys reports no deployments in the degraded dataset.
func (s *SyntheticTelemetry) FetchRecentDeploys(context.Context, string, time.Duration) ([]string, error) {
	return nil, nil
}

// SyntheticGraph serves a deterministic dependency graph.
type SyntheticGraph struct{}

// NewSyntheticGraph constructs the degraded graph source.
func NewSyntheticGraph() *SyntheticGraph { return &SyntheticGraph{} }

// FetchBlastRadius returns the fixed blast radius for the service.
func (s *SyntheticGraph) FetchBlastRadius(_ context.Context, service string) (models.DependencyGraph, error) {
	if service == "payment-svc" {
		return models.DependencyGraph{
			ImpactedServices: []string{"checkout-svc", "order-api", "fraud-detection-svc"},
			UpstreamServices: []string{"orders-db", "redis-cache"},
			Mode:             models.ModeDegraded,
		}, nil
	}
	return models.DependencyGraph{
		ImpactedServices: []string{"client-of-" + service},
		UpstreamServices: []string{"upstream-db-for-" + service},
		Mode:             models.ModeDegraded,
	}, nil
}

// Close is a no-op for the synthetic graph.
func (s *SyntheticGraph) Close(context.Context) error { return nil }

// SyntheticRunbooks serves deterministic historical runbooks.
type SyntheticRunbooks struct{}

// NewSyntheticRunbooks constructs the degraded runbook source.
func NewSyntheticRunbooks() *SyntheticRunbooks { return &SyntheticRunbooks{} }

// Mode reports the connector mode.
func (s *SyntheticRunbooks) Mode() models.ConnectorMode { return models.ModeDegraded }

// FetchRunbooks returns the fixed runbook matches for the service.
func (s *SyntheticRunbooks) FetchRunbooks(_ context.Context, service, _ string, limit int) ([]models.Runbook, error) {
	var books []models.Runbook
	if service == "payment-svc" {
		books = []models.Runbook{
			{
				Title:   "Payment DB Pool Saturation Playbook",
				Summary: "Mitigate high p99 latency caused by connection pool exhaustion.",
				Steps: []string{
					"Increase orders-db pool max from 100 to 200.",
					"Enable circuit breaker for optional downstream calls.",
					"Set fail-fast timeout to 750ms on DB acquire path.",
				},
				LastUsedAt:      time.Now().UTC().AddDate(0, 0, -42).Format(time.RFC3339),
				SimilarityScore: 0.93,
			},
			{
				Title:   "Retry Storm Containment SOP",
				Summary: "Reduce cascading load when retries amplify latency.",
				Steps: []string{
					"Apply exponential backoff with jitter on payment retries.",
					"Cap in-flight DB requests at safe concurrency threshold.",
					"Disable non-critical synchronous enrichments temporarily.",
				},
				LastUsedAt:      time.Now().UTC().AddDate(0, 0, -51).Format(time.RFC3339),
				SimilarityScore: 0.86,
			},
		}
	} else {
		books = []models.Runbook{
			{
				Title:   service + " Incident Baseline Runbook",
				Summary: "Generic mitigation for elevated latency and errors.",
				Steps: []string{
					"Scale " + service + " replicas by 2x.",
					"Enable circuit breaker for unstable dependencies.",
					"Verify recovery in p95/p99 and 5xx error rate.",
				},
				LastUsedAt:      time.Now().UTC().AddDate(0, 0, -30).Format(time.RFC3339),
				SimilarityScore: 0.70,
			},
		}
	}
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

// Close is a no-op for the synthetic runbook store.
func (s *SyntheticRunbooks) Close(context.Context) error { return nil }
