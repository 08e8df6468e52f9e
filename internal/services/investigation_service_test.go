package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariastack/aria-engine/internal/engine"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/repo"
	"github.com/ariastack/aria-engine/internal/utils"
)

func degradedService() *InvestigationService {
	reasoner := repo.NewDisabledReasoner()
	telemetry := repo.NewSyntheticTelemetry()
	triage := engine.NewTriageStage(nil, reasoner, telemetry, nil)
	investigation := engine.NewInvestigationStage(nil, telemetry, telemetry, 8)
	rootCause := engine.NewRootCauseStage(nil, repo.NewSyntheticGraph(), repo.NewSyntheticRunbooks(), reasoner)
	orchestrator := engine.NewOrchestrator(nil, triage, investigation, rootCause)
	return NewInvestigationService(nil, orchestrator)
}

func TestInvestigateRejectsInvalidAlert(t *testing.T) {
	service := degradedService()

	_, err := service.Investigate(context.Background(), models.AlertPayload{Service: "payment-svc"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var app *utils.AppError
	if !errors.As(err, &app) || app.Kind != utils.KindInput {
		t.Fatalf("error = %v, want input-kind AppError", err)
	}
}

func TestInvestigateDemoAlertEndToEnd(t *testing.T) {
	service := degradedService()

	events, err := service.Investigate(context.Background(), service.DemoAlert())
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}

	var collected []models.Event
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case event, ok := <-events:
			if !ok {
				done = true
				break
			}
			collected = append(collected, event)
		case <-timeout:
			t.Fatal("event stream did not close")
		}
	}

	if len(collected) == 0 {
		t.Fatal("no events received")
	}
	last := collected[len(collected)-1]
	if last.Type != models.EventReport || last.Report == nil {
		t.Fatalf("last event = %+v, want report", last)
	}
	report := last.Report
	if report.Triage.Severity != models.SeveritySev1 {
		t.Fatalf("severity = %s, want sev1 for the demo alert", report.Triage.Severity)
	}
	if report.Evidence.ConnectorMode != models.ModeDegraded {
		t.Fatalf("evidence mode = %s, want degraded", report.Evidence.ConnectorMode)
	}
	if len(report.RCA.Runbooks) == 0 {
		t.Fatal("synthetic runbooks must be matched for payment-svc")
	}
	if len(report.RCA.BlastRadius) == 0 {
		t.Fatal("synthetic blast radius must not be empty")
	}
}

func TestDemoAlert(t *testing.T) {
	alert := degradedService().DemoAlert()
	if err := alert.Validate(); err != nil {
		t.Fatalf("demo alert must validate: %v", err)
	}
	if alert.Service != "payment-svc" || alert.ErrorRatePct < 10 {
		t.Fatalf("demo alert = %+v, want the canonical payment-svc incident", alert)
	}
}
