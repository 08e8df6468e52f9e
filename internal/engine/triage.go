package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

const (
	// defaultWindowMinutes is used whenever triage cannot pick a window itself.
	defaultWindowMinutes = 30
	minWindowMinutes     = 15
	maxWindowMinutes     = 60
)

// TriageStage classifies incident severity. It runs twice per investigation:
// once on the raw alert and once more after evidence collection.
type TriageStage struct {
	logger    *slog.Logger
	reasoner  ReasoningClient
	telemetry TelemetrySource
	profiles  ProfileSource
}

// NewTriageStage constructs the triage stage.
func NewTriageStage(logger *slog.Logger, reasoner ReasoningClient, telemetry TelemetrySource, profiles ProfileSource) *TriageStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriageStage{logger: logger, reasoner: reasoner, telemetry: telemetry, profiles: profiles}
}

// Classify produces the initial snapshot-only triage. It never fails: when the
// reasoning connector is unavailable or returns unusable output, a fixed
// threshold rule decides instead and the result carries a data-quality warning.
func (s *TriageStage) Classify(ctx context.Context, alert models.AlertPayload) models.TriageResult {
	tc := models.TriageContext{Alert: alert}
	if s.profiles != nil {
		if profile, ok := s.profiles.Lookup(alert.Service); ok {
			tc.Profile = &profile
		}
	}

	var deploys []string
	if s.telemetry != nil {
		found, err := s.telemetry.FetchRecentDeploys(ctx, alert.Service, defaultWindowMinutes*time.Minute)
		if err != nil {
			s.logger.Warn("recent deploy lookup failed", slog.String("service", alert.Service), slog.Any("error", err))
		} else {
			deploys = found
		}
	}
	tc.RecentDeploys = deploys

	result, err := s.reasoner.SynthesizeTriage(ctx, tc)
	if err != nil || result == nil {
		if err != nil {
			s.logger.Warn("triage reasoning unavailable, using threshold rule",
				slog.String("incident", alert.IncidentID), slog.Any("error", err))
		}
		metrics.CountFallback("reasoner")
		return s.ruleFallback(alert, deploys)
	}

	return s.enforceInvariants(*result)
}

// Refine re-runs triage with the evidence package in hand. May escalate; a
// de-escalation without a changed urgency reason is rejected. On reasoning
// failure the prior result is returned unchanged.
func (s *TriageStage) Refine(ctx context.Context, alert models.AlertPayload, prior models.TriageResult, evidence *models.EvidencePackage) models.TriageResult {
	tc := models.TriageContext{Alert: alert, Prior: &prior, Evidence: evidence}
	if s.profiles != nil {
		if profile, ok := s.profiles.Lookup(alert.Service); ok {
			tc.Profile = &profile
		}
	}

	result, err := s.reasoner.SynthesizeTriage(ctx, tc)
	if err != nil || result == nil {
		if err != nil {
			s.logger.Warn("triage refinement unavailable, keeping initial result",
				slog.String("incident", alert.IncidentID), slog.Any("error", err))
		}
		metrics.CountFallback("reasoner")
		return prior
	}

	if prior.Severity.MoreSevereThan(result.Severity) && result.UrgencyReason == prior.UrgencyReason {
		s.logger.Warn("refinement de-escalated without new justification, keeping initial result",
			slog.String("incident", alert.IncidentID),
			slog.String("prior", string(prior.Severity)),
			slog.String("refined", string(result.Severity)))
		return prior
	}

	return s.enforceInvariants(*result)
}

// enforceInvariants pins the fields the reasoner is not allowed to decide.
func (s *TriageStage) enforceInvariants(result models.TriageResult) models.TriageResult {
	if result.Severity.Rank() <= models.SeveritySev1.Rank() {
		result.RequiresHumanConfirmation = true
	}
	if result.LikelyCause == "" {
		result.LikelyCause = models.CauseUnknown
	}
	result.InvestigationWindowMinutes = utils.ClampWindowMinutes(
		result.InvestigationWindowMinutes, minWindowMinutes, maxWindowMinutes, defaultWindowMinutes)
	return result
}

// ruleFallback is the deterministic severity rule used when reasoning is out.
func (s *TriageStage) ruleFallback(alert models.AlertPayload, deploys []string) models.TriageResult {
	severity := models.SeveritySev3
	switch {
	case alert.ErrorRatePct >= 10 || alert.P99LatencyMs >= 3000:
		severity = models.SeveritySev1
	case alert.ErrorRatePct >= 5 || alert.P99LatencyMs >= 2000:
		severity = models.SeveritySev2
	}

	cause := models.CauseUnknown
	if len(deploys) > 0 {
		cause = models.CauseRecentDeploy
	}

	return models.TriageResult{
		Severity:        severity,
		AffectedService: alert.Service,
		UrgencyReason: fmt.Sprintf("%s reports %.1f%% errors with p99 %.0fms, matching %s thresholds",
			alert.Service, alert.ErrorRatePct, alert.P99LatencyMs, severity),
		InvestigationWindowMinutes: defaultWindowMinutes,
		Confidence:                 0.4,
		EscalateImmediately:        severity == models.SeveritySev1,
		LikelyCause:                cause,
		RequiresHumanConfirmation:  severity.Rank() <= models.SeveritySev1.Rank(),
		DataQualityWarning:         "severity derived from fixed metric thresholds; reasoning connector unavailable",
	}
}
