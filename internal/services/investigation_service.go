package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariastack/aria-engine/internal/engine"
	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

// InvestigationService is the facade between the transport layer and the
// pipeline. It validates input, runs the orchestrator, and keeps latency
// bookkeeping per completed run.
type InvestigationService struct {
	logger       *slog.Logger
	orchestrator *engine.Orchestrator
	latencies    *utils.LatencyTracker
}

// NewInvestigationService constructs the service facade.
func NewInvestigationService(logger *slog.Logger, orchestrator *engine.Orchestrator) *InvestigationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvestigationService{
		logger:       logger,
		orchestrator: orchestrator,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// Investigate validates the alert and starts a pipeline run. The returned
// channel follows the orchestrator's contract: ordered events ending with one
// terminal event. Validation failures are reported before any run starts.
func (s *InvestigationService) Investigate(ctx context.Context, alert models.AlertPayload) (<-chan models.Event, error) {
	const op = "services.Investigate"

	if err := alert.Validate(); err != nil {
		return nil, utils.NewAppError(op, utils.KindInput, "invalid alert payload", err)
	}
	if s.orchestrator == nil {
		return nil, utils.NewAppError(op, utils.KindInternal, "orchestrator not configured", nil)
	}

	s.logger.Debug("investigation requested",
		slog.String("incident", alert.IncidentID), slog.String("service", alert.Service))

	upstream := s.orchestrator.Run(ctx, alert)
	out := make(chan models.Event)

	go func() {
		defer close(out)
		start := time.Now()
		outcome := metrics.OutcomeError

		for event := range upstream {
			if event.Type == models.EventReport {
				outcome = metrics.OutcomeSuccess
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}

		duration := time.Since(start)
		metrics.ObserveInvestigation(duration, outcome)
		if outcome == metrics.OutcomeSuccess {
			s.latencies.Observe(duration)
			if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
				s.logger.Info("investigation latency",
					slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
			}
		}
	}()

	return out, nil
}

// DemoAlert returns the canonical sample alert used by the demo endpoint.
func (s *InvestigationService) DemoAlert() models.AlertPayload {
	return models.AlertPayload{
		IncidentID:   "inc-4821-payment-latency",
		Service:      "payment-svc",
		Summary:      "p99 latency breach and elevated 5xx rate on payment-svc",
		P99LatencyMs: 4200,
		ErrorRatePct: 12,
		StartedAt:    time.Now().UTC().Add(-25 * time.Minute).Format(time.RFC3339),
	}
}

// LatencyP95 returns the current p95 investigation latency.
func (s *InvestigationService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
