package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/models"
)

// Stage names as they appear on timeline steps.
const (
	StageTriage        = "triage"
	StageInvestigation = "investigation"
	StageTriageRefine  = "triage_refine"
	StageRootCause     = "root_cause"
)

// Orchestrator sequences the pipeline stages for one investigation run and
// streams progress as ordered events. Each run owns its channel; concurrent
// runs never share state beyond the injected stage handles.
type Orchestrator struct {
	logger        *slog.Logger
	triage        *TriageStage
	investigation *InvestigationStage
	rootCause     *RootCauseStage
}

// NewOrchestrator constructs the orchestrator over the three stages.
func NewOrchestrator(logger *slog.Logger, triage *TriageStage, investigation *InvestigationStage, rootCause *RootCauseStage) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger, triage: triage, investigation: investigation, rootCause: rootCause}
}

// Run executes the pipeline for one alert. The returned channel carries zero
// or more step and confirmation events followed by exactly one terminal
// report or error event, then closes. If ctx is cancelled mid-run the channel
// closes without a terminal event and in-flight connector calls are released.
func (o *Orchestrator) Run(ctx context.Context, alert models.AlertPayload) <-chan models.Event {
	out := make(chan models.Event)

	go func() {
		var stage string
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("pipeline panicked",
					slog.String("incident", alert.IncidentID), slog.String("stage", stage), slog.Any("panic", r))
				if stage != "" {
					if !o.sendStep(ctx, out, stage, models.StepFailed, "Stage failed", fmt.Sprintf("%v", r), nil) {
						return
					}
				}
				o.send(ctx, out, models.Event{
					Type:    models.EventError,
					Message: fmt.Sprintf("internal fault during investigation: %v", r),
				})
			}
		}()
		o.run(ctx, out, alert, &stage)
	}()

	return out
}

// run drives the stage sequence. stage tracks the stage in flight so a panic
// can be surfaced as a failed step for it before the terminal error event.
func (o *Orchestrator) run(ctx context.Context, out chan<- models.Event, alert models.AlertPayload, stage *string) {
	logger := o.logger.With(slog.String("incident", alert.IncidentID), slog.String("service", alert.Service))
	logger.Info("investigation started")

	// TRIAGE_1
	*stage = StageTriage
	if !o.stepRunning(ctx, out, StageTriage, "Triaging incident", "Classifying severity from the alert snapshot") {
		return
	}
	started := time.Now()
	triage := o.triage.Classify(ctx, alert)
	metrics.ObserveStage(StageTriage, time.Since(started))
	if !o.stepCompleted(ctx, out, StageTriage, "Triage complete",
		fmt.Sprintf("%s incident in %s, investigating the last %d minutes", triage.Severity, triage.AffectedService, triage.InvestigationWindowMinutes),
		map[string]any{
			"severity":    triage.Severity,
			"confidence":  triage.Confidence,
			"likelyCause": triage.LikelyCause,
		}) {
		return
	}

	// INVESTIGATE
	*stage = StageInvestigation
	if !o.stepRunning(ctx, out, StageInvestigation, "Gathering evidence", "Querying logs, error rates, and latency summaries") {
		return
	}
	started = time.Now()
	evidence := o.investigation.Gather(ctx, alert, triage.InvestigationWindowMinutes)
	metrics.ObserveStage(StageInvestigation, time.Since(started))
	if !o.stepCompleted(ctx, out, StageInvestigation, "Evidence collected",
		fmt.Sprintf("%d error findings, trend %s, %d cross-service entries", len(evidence.TopErrors), evidence.Trend, len(evidence.CrossServiceLogs)),
		map[string]any{
			"topErrors":     len(evidence.TopErrors),
			"trend":         evidence.Trend,
			"connectorMode": evidence.ConnectorMode,
		}) {
		return
	}

	// TRIAGE_2
	*stage = StageTriageRefine
	if !o.stepRunning(ctx, out, StageTriageRefine, "Refining triage", "Re-evaluating severity against the collected evidence") {
		return
	}
	started = time.Now()
	refined := o.triage.Refine(ctx, alert, triage, &evidence)
	metrics.ObserveStage(StageTriageRefine, time.Since(started))
	if !o.stepCompleted(ctx, out, StageTriageRefine, "Triage refined",
		fmt.Sprintf("Severity %s, confidence %.2f", refined.Severity, refined.Confidence),
		map[string]any{
			"severity":                  refined.Severity,
			"confidence":                refined.Confidence,
			"requiresHumanConfirmation": refined.RequiresHumanConfirmation,
		}) {
		return
	}

	// CONFIRM (advisory, never blocks)
	if refined.RequiresHumanConfirmation {
		triageCopy := refined
		if !o.send(ctx, out, models.Event{Type: models.EventConfirmationRequired, Triage: &triageCopy}) {
			return
		}
	}

	// ROOT_CAUSE
	*stage = StageRootCause
	if !o.stepRunning(ctx, out, StageRootCause, "Synthesizing root cause", "Correlating blast radius, runbooks, and evidence") {
		return
	}
	started = time.Now()
	rca := o.rootCause.Synthesize(ctx, alert, refined, evidence)
	metrics.ObserveStage(StageRootCause, time.Since(started))
	detail := "No hypotheses produced"
	if len(rca.Hypotheses) > 0 {
		detail = fmt.Sprintf("Leading hypothesis: %s (p=%.2f)", rca.Hypotheses[0].Title, rca.Hypotheses[0].Probability)
	}
	if !o.stepCompleted(ctx, out, StageRootCause, "Root cause analysis complete", detail,
		map[string]any{
			"hypotheses":  len(rca.Hypotheses),
			"blastRadius": len(rca.BlastRadius),
			"confidence":  rca.Confidence,
		}) {
		return
	}

	report := models.InvestigationReport{
		Alert:    alert,
		Triage:   refined,
		Evidence: evidence,
		RCA:      rca,
	}
	if o.send(ctx, out, models.Event{Type: models.EventReport, Report: &report}) {
		logger.Info("investigation finished", slog.String("severity", string(refined.Severity)))
	}
}

func (o *Orchestrator) stepRunning(ctx context.Context, out chan<- models.Event, stage, title, detail string) bool {
	return o.sendStep(ctx, out, stage, models.StepRunning, title, detail, nil)
}

func (o *Orchestrator) stepCompleted(ctx context.Context, out chan<- models.Event, stage, title, detail string, payload map[string]any) bool {
	return o.sendStep(ctx, out, stage, models.StepCompleted, title, detail, payload)
}

func (o *Orchestrator) sendStep(ctx context.Context, out chan<- models.Event, stage string, status models.StepStatus, title, detail string, payload map[string]any) bool {
	step := &models.TimelineStep{
		ID:        uuid.NewString(),
		Stage:     stage,
		Status:    status,
		Title:     title,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	return o.send(ctx, out, models.Event{Type: models.EventStep, Step: step})
}

func (o *Orchestrator) send(ctx context.Context, out chan<- models.Event, event models.Event) bool {
	select {
	case out <- event:
		return true
	case <-ctx.Done():
		o.logger.Info("caller gone, stopping event stream")
		return false
	}
}
