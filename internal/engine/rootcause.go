package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/models"
)

const (
	maxRunbooks  = 3
	maxPlanSteps = 5
)

// RootCauseStage turns the evidence package into ranked hypotheses, a blast
// radius, matched runbooks, and a recommended action plan.
type RootCauseStage struct {
	logger   *slog.Logger
	graph    GraphSource
	runbooks RunbookSource
	reasoner ReasoningClient
}

// NewRootCauseStage constructs the root-cause stage.
func NewRootCauseStage(logger *slog.Logger, graph GraphSource, runbooks RunbookSource, reasoner ReasoningClient) *RootCauseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RootCauseStage{logger: logger, graph: graph, runbooks: runbooks, reasoner: reasoner}
}

// Synthesize fetches blast radius and runbooks concurrently, then asks the
// reasoning connector for a ranked hypothesis set. Either lookup failing
// yields an empty result for that lookup only; reasoning failing yields the
// deterministic heuristic hypotheses. Never fails.
func (s *RootCauseStage) Synthesize(ctx context.Context, alert models.AlertPayload, triage models.TriageResult, evidence models.EvidencePackage) models.RCAResult {
	var (
		graph       models.DependencyGraph
		books       []models.Runbook
		runbookMode models.ConnectorMode
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.graph.FetchBlastRadius(gctx, alert.Service)
		if err != nil {
			s.logger.Warn("blast radius lookup failed", slog.String("service", alert.Service), slog.Any("error", err))
			metrics.CountFallback("graph")
			graph = models.DependencyGraph{Mode: models.ModeDegraded}
			return nil
		}
		graph = found
		return nil
	})
	g.Go(func() error {
		found, err := s.runbooks.FetchRunbooks(gctx, alert.Service, alert.Summary, maxRunbooks)
		if err != nil {
			s.logger.Warn("runbook lookup failed", slog.String("service", alert.Service), slog.Any("error", err))
			metrics.CountFallback("runbooks")
			runbookMode = models.ModeDegraded
			return nil
		}
		books = found
		runbookMode = s.runbooks.Mode()
		return nil
	})
	_ = g.Wait()

	rc := models.RCAContext{
		Alert:       alert,
		Triage:      triage,
		Evidence:    evidence,
		BlastRadius: graph,
		Runbooks:    books,
	}

	var (
		hypotheses []models.Hypothesis
		plan       []string
		narrative  string
		confidence float64
	)

	draft, err := s.reasoner.SynthesizeRCA(ctx, rc)
	fallback := err != nil || draft == nil
	if fallback {
		if err != nil {
			s.logger.Warn("rca reasoning unavailable, using heuristic hypotheses",
				slog.String("incident", alert.IncidentID), slog.Any("error", err))
		}
		metrics.CountFallback("reasoner")
		hypotheses = s.heuristicHypotheses(alert, evidence, books)
	} else {
		hypotheses = draft.Hypotheses
	}

	// Final ordering belongs to the stage, not the reasoner. Sorting precedes
	// plan construction: the plan seeds from the top-ranked hypothesis.
	sort.SliceStable(hypotheses, func(i, j int) bool {
		return hypotheses[i].Probability > hypotheses[j].Probability
	})

	if fallback {
		plan = buildPlan(hypotheses, books)
		narrative = fmt.Sprintf("Heuristic analysis of %s: %s is the leading explanation for %.1f%% errors with p99 %.0fms (trend %s). Reasoning synthesis was unavailable.",
			alert.Service, hypotheses[0].Title, alert.ErrorRatePct, alert.P99LatencyMs, evidence.Trend)
		confidence = 0.55
	} else {
		narrative = draft.Narrative
		confidence = draft.Confidence
		plan = dedupSteps(draft.RecommendedPlan, maxPlanSteps)
		if len(plan) == 0 {
			plan = buildPlan(hypotheses, books)
		}
	}

	return models.RCAResult{
		Hypotheses:       hypotheses,
		BlastRadius:      graph.ImpactedServices,
		UpstreamServices: graph.UpstreamServices,
		Runbooks:         books,
		RecommendedPlan:  plan,
		Confidence:       confidence,
		Narrative:        narrative,
		GraphMode:        graph.Mode,
		RunbookMode:      runbookMode,
	}
}

// heuristicHypotheses builds the deterministic fallback: a primary hypothesis
// named after the dominant classified error kind and a secondary deployment
// regression hypothesis.
func (s *RootCauseStage) heuristicHypotheses(alert models.AlertPayload, evidence models.EvidencePackage, books []models.Runbook) []models.Hypothesis {
	var primaryEvidence []string
	title := fmt.Sprintf("elevated errors in %s", alert.Service)
	if len(evidence.TopPatterns) > 0 {
		pattern := evidence.TopPatterns[0]
		title = fmt.Sprintf("%s in %s", strings.ReplaceAll(pattern.Kind, "_", " "), alert.Service)
		primaryEvidence = append(primaryEvidence, fmt.Sprintf("dominant error (%dx): %s", pattern.Count, pattern.Sample))
	} else if len(evidence.TopErrors) > 0 {
		primaryEvidence = append(primaryEvidence, "top error: "+evidence.TopErrors[0].Message)
	}
	primaryEvidence = append(primaryEvidence,
		fmt.Sprintf("alert metrics: %.1f%% errors, p99 %.0fms", alert.ErrorRatePct, alert.P99LatencyMs))
	if evidence.Trend != "" && evidence.Trend != models.TrendUnknown {
		primaryEvidence = append(primaryEvidence, "error rate trend: "+string(evidence.Trend))
	}

	remediation := []string{
		"Review deployments shipped in the last hour and roll back the most recent change",
		"Check downstream dependency health and connection saturation",
		"Scale out the service if the load profile indicates saturation",
	}
	if len(books) > 0 {
		primaryEvidence = append(primaryEvidence, "matched runbook: "+books[0].Title)
		if len(books[0].Steps) > 0 {
			remediation = books[0].Steps
			if len(remediation) > 3 {
				remediation = remediation[:3]
			}
		}
	}

	var secondaryEvidence []string
	if len(evidence.SpanSummaries) > 0 {
		secondaryEvidence = append(secondaryEvidence, "latency summary: "+evidence.SpanSummaries[0])
	} else {
		secondaryEvidence = append(secondaryEvidence, "no span summaries available for the window")
	}
	secondaryEvidence = append(secondaryEvidence,
		fmt.Sprintf("p99 latency %.0fms against recent baseline", alert.P99LatencyMs))

	return []models.Hypothesis{
		{
			Title:       title,
			Probability: 0.7,
			Evidence:    primaryEvidence,
			Remediation: remediation,
		},
		{
			Title:       fmt.Sprintf("recent deployment regression in %s", alert.Service),
			Probability: 0.4,
			Evidence:    secondaryEvidence,
			Remediation: []string{
				"Diff the latest deployment against the previous release",
				"Roll back if the regression window aligns with the deploy time",
			},
		},
	}
}

// buildPlan merges the top hypothesis remediation with runbook steps in rank
// order, deduplicated and capped.
func buildPlan(hypotheses []models.Hypothesis, books []models.Runbook) []string {
	var steps []string
	if len(hypotheses) > 0 {
		steps = append(steps, hypotheses[0].Remediation...)
	}
	for _, book := range books {
		steps = append(steps, book.Steps...)
	}
	return dedupSteps(steps, maxPlanSteps)
}

func dedupSteps(steps []string, limit int) []string {
	seen := make(map[string]struct{}, len(steps))
	out := make([]string, 0, limit)
	for _, step := range steps {
		trimmed := strings.TrimSpace(step)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
		if len(out) == limit {
			break
		}
	}
	return out
}
