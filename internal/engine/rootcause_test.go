package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ariastack/aria-engine/internal/models"
)

func sampleEvidence(now time.Time) models.EvidencePackage {
	return models.EvidencePackage{
		WindowStart: now.Add(-30 * time.Minute),
		WindowEnd:   now,
		TopErrors: []models.LogFinding{
			{Timestamp: now.Add(-2 * time.Minute), Level: "error", Message: "connection pool exhausted: all 50 connections in use", ErrorKind: "connection_pool_exhaustion"},
		},
		TopPatterns: []models.ErrorPattern{
			{Kind: "connection_pool_exhaustion", Count: 847, LastSeen: now.Add(-2 * time.Minute), Sample: "connection pool exhausted: all 50 connections in use"},
		},
		Trend:         models.TrendRising,
		SpanSummaries: []string{"db.query accounts for 89% of request time"},
		ConnectorMode: models.ModeLive,
	}
}

func sampleRunbooks() []models.Runbook {
	return []models.Runbook{
		{
			Title:           "Payment DB Pool Saturation Playbook",
			Steps:           []string{"Raise the pool ceiling", "Recycle stuck connections", "Throttle retry-heavy callers", "Verify latency recovery"},
			SimilarityScore: 0.93,
		},
		{
			Title:           "Retry Storm Containment SOP",
			Steps:           []string{"Throttle retry-heavy callers", "Enable circuit breaker"},
			SimilarityScore: 0.86,
		},
	}
}

func sampleTriage() models.TriageResult {
	return models.TriageResult{
		Severity:                   models.SeveritySev1,
		AffectedService:            "payment-svc",
		UrgencyReason:              "error rate breached 10%",
		InvestigationWindowMinutes: 30,
		RequiresHumanConfirmation:  true,
	}
}

func TestSynthesizeHeuristicFallback(t *testing.T) {
	now := time.Now().UTC()
	graph := &fakeGraph{graph: models.DependencyGraph{
		ImpactedServices: []string{"checkout-svc", "order-api"},
		UpstreamServices: []string{"orders-db"},
		Mode:             models.ModeLive,
	}}
	stage := NewRootCauseStage(nil, graph, &fakeRunbooks{books: sampleRunbooks()}, &fakeReasoner{rcaErr: errDown})

	result := stage.Synthesize(context.Background(), sampleAlert(), sampleTriage(), sampleEvidence(now))

	if len(result.Hypotheses) < 2 {
		t.Fatalf("hypotheses = %d, want at least 2", len(result.Hypotheses))
	}
	for i := 1; i < len(result.Hypotheses); i++ {
		if result.Hypotheses[i].Probability > result.Hypotheses[i-1].Probability {
			t.Fatal("hypotheses must be sorted by probability descending")
		}
	}
	if !strings.Contains(result.Hypotheses[0].Title, "connection pool exhaustion") {
		t.Fatalf("primary title = %q, want derived from dominant error kind", result.Hypotheses[0].Title)
	}
	if len(result.RecommendedPlan) == 0 || len(result.RecommendedPlan) > 5 {
		t.Fatalf("plan length = %d, want 1..5", len(result.RecommendedPlan))
	}
	seen := map[string]bool{}
	for _, step := range result.RecommendedPlan {
		key := strings.ToLower(step)
		if seen[key] {
			t.Fatalf("duplicate plan step %q", step)
		}
		seen[key] = true
	}
	// Top-hypothesis remediation comes before remaining runbook steps.
	if result.RecommendedPlan[0] != "Raise the pool ceiling" {
		t.Fatalf("plan[0] = %q, want the top remediation step first", result.RecommendedPlan[0])
	}
	if len(result.BlastRadius) != 2 || len(result.UpstreamServices) != 1 {
		t.Fatal("blast radius lookup results not attached")
	}
	if result.Narrative == "" {
		t.Fatal("fallback must still produce a narrative")
	}
}

func TestSynthesizeFallbackWithoutRunbooks(t *testing.T) {
	now := time.Now().UTC()
	stage := NewRootCauseStage(nil, &fakeGraph{err: errDown}, &fakeRunbooks{err: errDown}, &fakeReasoner{rcaErr: errDown})

	result := stage.Synthesize(context.Background(), sampleAlert(), sampleTriage(), sampleEvidence(now))

	if len(result.Hypotheses) < 2 {
		t.Fatalf("hypotheses = %d, want at least 2", len(result.Hypotheses))
	}
	if len(result.BlastRadius) != 0 {
		t.Fatal("failed graph lookup must yield an empty blast radius")
	}
	if len(result.RecommendedPlan) == 0 {
		t.Fatal("generic remediation must still produce a plan")
	}
}

func TestSynthesizeReordersLiveHypotheses(t *testing.T) {
	now := time.Now().UTC()
	draft := &models.RCADraft{
		Narrative:  "pool saturation cascading from retry storm",
		Confidence: 0.82,
		Hypotheses: []models.Hypothesis{
			{Title: "secondary", Probability: 0.3, Remediation: []string{"step b"}},
			{Title: "primary", Probability: 0.9, Remediation: []string{"step a"}},
		},
		RecommendedPlan: []string{"step a", "step a", "step b"},
	}
	stage := NewRootCauseStage(nil, &fakeGraph{}, &fakeRunbooks{}, &fakeReasoner{rca: draft})

	result := stage.Synthesize(context.Background(), sampleAlert(), sampleTriage(), sampleEvidence(now))

	if result.Hypotheses[0].Title != "primary" {
		t.Fatalf("hypotheses[0] = %q, want reordered by probability", result.Hypotheses[0].Title)
	}
	if len(result.RecommendedPlan) != 2 {
		t.Fatalf("plan = %v, want deduplicated", result.RecommendedPlan)
	}
	if result.Confidence != 0.82 {
		t.Fatalf("confidence = %f, want reasoner value kept", result.Confidence)
	}
}

func TestSynthesizePlanSeedsFromTopRankedHypothesis(t *testing.T) {
	now := time.Now().UTC()
	draft := &models.RCADraft{
		Narrative:  "pool saturation cascading from retry storm",
		Confidence: 0.82,
		Hypotheses: []models.Hypothesis{
			{Title: "secondary", Probability: 0.3, Remediation: []string{"restart the sidecar"}},
			{Title: "primary", Probability: 0.9, Remediation: []string{"Raise the pool ceiling"}},
		},
	}
	stage := NewRootCauseStage(nil, &fakeGraph{}, &fakeRunbooks{}, &fakeReasoner{rca: draft})

	// The draft carries no plan, so the stage builds one from the hypotheses
	// after ordering them by probability.
	result := stage.Synthesize(context.Background(), sampleAlert(), sampleTriage(), sampleEvidence(now))

	if len(result.RecommendedPlan) == 0 {
		t.Fatal("stage must build a plan when the draft carries none")
	}
	if result.RecommendedPlan[0] != "Raise the pool ceiling" {
		t.Fatalf("plan[0] = %q, want the highest-probability remediation first", result.RecommendedPlan[0])
	}
}
