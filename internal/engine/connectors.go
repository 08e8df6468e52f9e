package engine

import (
	"context"
	"time"

	"github.com/ariastack/aria-engine/internal/models"
)

// TelemetrySource defines the log/metrics connector behaviour used by the
// pipeline. Implementations must be safe for concurrent use across runs.
type TelemetrySource interface {
	Mode() models.ConnectorMode
	FetchErrorLogs(ctx context.Context, service string, window time.Duration, limit int) ([]models.LogFinding, error)
	FetchErrorRateSeries(ctx context.Context, service string, window, bucket time.Duration) ([]models.SeriesPoint, error)
	FetchSpanSummaries(ctx context.Context, service string, window time.Duration) ([]string, error)
	FetchCorrelatedLogs(ctx context.Context, traceIDs []string, excludeService string, window time.Duration) ([]models.LogFinding, error)
	FetchRecentDeploys(ctx context.Context, service string, window time.Duration) ([]string, error)
}

// GraphSource resolves the dependency blast radius of a service.
type GraphSource interface {
	FetchBlastRadius(ctx context.Context, service string) (models.DependencyGraph, error)
}

// RunbookSource retrieves historical remediation documents matched to an
// incident.
type RunbookSource interface {
	Mode() models.ConnectorMode
	FetchRunbooks(ctx context.Context, service, summary string, limit int) ([]models.Runbook, error)
}

// ReasoningClient is the LLM boundary. Both methods return a fully-validated
// result or an error; stages treat every error as "no usable answer" and take
// their deterministic fallback.
type ReasoningClient interface {
	SynthesizeTriage(ctx context.Context, tc models.TriageContext) (*models.TriageResult, error)
	SynthesizeRCA(ctx context.Context, rc models.RCAContext) (*models.RCADraft, error)
}

// ProfileSource supplies static per-service operational context.
type ProfileSource interface {
	Lookup(service string) (models.ServiceProfile, bool)
}
