package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ariastack/aria-engine/internal/models"
)

var errDown = errors.New("backend unreachable")

type fakeTelemetry struct {
	mode       models.ConnectorMode
	logs       []models.LogFinding
	logsErr    error
	series     []models.SeriesPoint
	seriesErr  error
	spans      []string
	spansErr   error
	cross      []models.LogFinding
	crossErr   error
	deploys    []string
	deploysErr error

	crossCalls int
}

func (f *fakeTelemetry) Mode() models.ConnectorMode {
	if f.mode == "" {
		return models.ModeLive
	}
	return f.mode
}

func (f *fakeTelemetry) FetchErrorLogs(context.Context, string, time.Duration, int) ([]models.LogFinding, error) {
	return f.logs, f.logsErr
}

func (f *fakeTelemetry) FetchErrorRateSeries(context.Context, string, time.Duration, time.Duration) ([]models.SeriesPoint, error) {
	return f.series, f.seriesErr
}

func (f *fakeTelemetry) FetchSpanSummaries(context.Context, string, time.Duration) ([]string, error) {
	return f.spans, f.spansErr
}

func (f *fakeTelemetry) FetchCorrelatedLogs(context.Context, []string, string, time.Duration) ([]models.LogFinding, error) {
	f.crossCalls++
	return f.cross, f.crossErr
}

func (f *fakeTelemetry) FetchRecentDeploys(context.Context, string, time.Duration) ([]string, error) {
	return f.deploys, f.deploysErr
}

type fakeGraph struct {
	graph models.DependencyGraph
	err   error
}

func (f *fakeGraph) FetchBlastRadius(context.Context, string) (models.DependencyGraph, error) {
	return f.graph, f.err
}

type fakeRunbooks struct {
	books []models.Runbook
	err   error
}

func (f *fakeRunbooks) Mode() models.ConnectorMode { return models.ModeLive }

func (f *fakeRunbooks) FetchRunbooks(context.Context, string, string, int) ([]models.Runbook, error) {
	return f.books, f.err
}

type fakeReasoner struct {
	triageResults []*models.TriageResult
	triageErr     error
	rca           *models.RCADraft
	rcaErr        error

	triageCalls int
}

func (f *fakeReasoner) SynthesizeTriage(context.Context, models.TriageContext) (*models.TriageResult, error) {
	f.triageCalls++
	if f.triageErr != nil {
		return nil, f.triageErr
	}
	if len(f.triageResults) == 0 {
		return nil, errDown
	}
	result := f.triageResults[0]
	if len(f.triageResults) > 1 {
		f.triageResults = f.triageResults[1:]
	}
	return result, nil
}

func (f *fakeReasoner) SynthesizeRCA(context.Context, models.RCAContext) (*models.RCADraft, error) {
	if f.rcaErr != nil {
		return nil, f.rcaErr
	}
	return f.rca, nil
}

type fakeProfiles map[string]models.ServiceProfile

func (f fakeProfiles) Lookup(service string) (models.ServiceProfile, bool) {
	profile, ok := f[service]
	return profile, ok
}

func sampleAlert() models.AlertPayload {
	return models.AlertPayload{
		IncidentID:   "inc-test-1",
		Service:      "payment-svc",
		Summary:      "elevated latency and errors",
		P99LatencyMs: 4200,
		ErrorRatePct: 12,
		StartedAt:    time.Now().UTC().Add(-20 * time.Minute).Format(time.RFC3339),
	}
}
