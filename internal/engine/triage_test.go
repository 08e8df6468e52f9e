package engine

import (
	"context"
	"testing"

	"github.com/ariastack/aria-engine/internal/models"
)

func TestClassifyFallbackSev1(t *testing.T) {
	stage := NewTriageStage(nil, &fakeReasoner{triageErr: errDown}, &fakeTelemetry{}, nil)

	result := stage.Classify(context.Background(), sampleAlert())

	if result.Severity != models.SeveritySev1 {
		t.Fatalf("severity = %s, want sev1", result.Severity)
	}
	if !result.RequiresHumanConfirmation {
		t.Fatal("sev1 must require human confirmation")
	}
	if result.DataQualityWarning == "" {
		t.Fatal("fallback classification must carry a data-quality warning")
	}
	if result.InvestigationWindowMinutes != 30 {
		t.Fatalf("window = %d, want 30", result.InvestigationWindowMinutes)
	}
}

func TestClassifyFallbackThresholds(t *testing.T) {
	cases := []struct {
		name      string
		errorRate float64
		p99       float64
		want      models.Severity
	}{
		{"high error rate", 10, 100, models.SeveritySev1},
		{"high latency", 1, 3000, models.SeveritySev1},
		{"moderate error rate", 5, 100, models.SeveritySev2},
		{"moderate latency", 1, 2000, models.SeveritySev2},
		{"benign", 1, 500, models.SeveritySev3},
	}

	stage := NewTriageStage(nil, &fakeReasoner{triageErr: errDown}, &fakeTelemetry{}, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			alert := sampleAlert()
			alert.ErrorRatePct = tc.errorRate
			alert.P99LatencyMs = tc.p99
			if got := stage.Classify(context.Background(), alert); got.Severity != tc.want {
				t.Fatalf("severity = %s, want %s", got.Severity, tc.want)
			}
		})
	}
}

func TestClassifyFallbackUsesDeploySignal(t *testing.T) {
	telemetry := &fakeTelemetry{deploys: []string{"payment-svc v142 deployed 18m ago"}}
	stage := NewTriageStage(nil, &fakeReasoner{triageErr: errDown}, telemetry, nil)

	result := stage.Classify(context.Background(), sampleAlert())
	if result.LikelyCause != models.CauseRecentDeploy {
		t.Fatalf("likelyCause = %s, want recent_deploy", result.LikelyCause)
	}
}

func TestClassifyEnforcesConfirmationOnLivePath(t *testing.T) {
	reasoner := &fakeReasoner{triageResults: []*models.TriageResult{{
		Severity:                   models.SeveritySev1,
		AffectedService:            "payment-svc",
		UrgencyReason:              "checkout conversion dropping",
		InvestigationWindowMinutes: 45,
		Confidence:                 0.9,
		RequiresHumanConfirmation:  false,
	}}}
	stage := NewTriageStage(nil, reasoner, &fakeTelemetry{}, nil)

	result := stage.Classify(context.Background(), sampleAlert())
	if !result.RequiresHumanConfirmation {
		t.Fatal("stage must pin requiresHumanConfirmation for sev1 regardless of reasoner output")
	}
	if result.InvestigationWindowMinutes != 45 {
		t.Fatalf("window = %d, want 45", result.InvestigationWindowMinutes)
	}
}

func TestRefineKeepsPriorOnFailure(t *testing.T) {
	stage := NewTriageStage(nil, &fakeReasoner{triageErr: errDown}, &fakeTelemetry{}, nil)
	prior := models.TriageResult{
		Severity:                  models.SeveritySev2,
		AffectedService:           "payment-svc",
		UrgencyReason:             "initial assessment",
		RequiresHumanConfirmation: false,
	}

	result := stage.Refine(context.Background(), sampleAlert(), prior, &models.EvidencePackage{})
	if result != prior {
		t.Fatalf("refine on failure = %+v, want prior unchanged", result)
	}
}

func TestRefineRejectsUnjustifiedDeescalation(t *testing.T) {
	prior := models.TriageResult{
		Severity:        models.SeveritySev1,
		AffectedService: "payment-svc",
		UrgencyReason:   "error rate breached 10%",
	}
	reasoner := &fakeReasoner{triageResults: []*models.TriageResult{{
		Severity:        models.SeveritySev3,
		AffectedService: "payment-svc",
		UrgencyReason:   "error rate breached 10%",
	}}}
	stage := NewTriageStage(nil, reasoner, &fakeTelemetry{}, nil)

	result := stage.Refine(context.Background(), sampleAlert(), prior, &models.EvidencePackage{})
	if result.Severity != models.SeveritySev1 {
		t.Fatalf("severity = %s, want prior sev1 kept", result.Severity)
	}
}

func TestRefineAcceptsJustifiedDeescalation(t *testing.T) {
	prior := models.TriageResult{
		Severity:        models.SeveritySev1,
		AffectedService: "payment-svc",
		UrgencyReason:   "error rate breached 10%",
	}
	reasoner := &fakeReasoner{triageResults: []*models.TriageResult{{
		Severity:        models.SeveritySev2,
		AffectedService: "payment-svc",
		UrgencyReason:   "errors localized to one canary pod, fleet-wide rate is 2%",
	}}}
	stage := NewTriageStage(nil, reasoner, &fakeTelemetry{}, nil)

	result := stage.Refine(context.Background(), sampleAlert(), prior, &models.EvidencePackage{})
	if result.Severity != models.SeveritySev2 {
		t.Fatalf("severity = %s, want justified sev2 accepted", result.Severity)
	}
	if result.UrgencyReason == prior.UrgencyReason {
		t.Fatal("accepted de-escalation must carry a different urgency reason")
	}
}

func TestRefineAcceptsEscalation(t *testing.T) {
	prior := models.TriageResult{
		Severity:        models.SeveritySev2,
		AffectedService: "payment-svc",
		UrgencyReason:   "initial assessment",
	}
	reasoner := &fakeReasoner{triageResults: []*models.TriageResult{{
		Severity:        models.SeveritySev1,
		AffectedService: "payment-svc",
		UrgencyReason:   "cross-service failures confirm customer impact",
	}}}
	stage := NewTriageStage(nil, reasoner, &fakeTelemetry{}, nil)

	result := stage.Refine(context.Background(), sampleAlert(), prior, &models.EvidencePackage{})
	if result.Severity != models.SeveritySev1 {
		t.Fatalf("severity = %s, want escalated sev1", result.Severity)
	}
	if !result.RequiresHumanConfirmation {
		t.Fatal("escalated sev1 must require confirmation")
	}
}
