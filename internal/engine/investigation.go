package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariastack/aria-engine/internal/metrics"
	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/patterns"
	"github.com/ariastack/aria-engine/internal/utils"
)

const (
	seriesBucket      = 5 * time.Minute
	maxTraceIDs       = 10
	maxTopPatterns    = 5
	defaultTopErrorsN = 8
)

// InvestigationStage assembles the evidence package for one incident. Three
// telemetry queries fan out in parallel; each branch fails independently and
// only contributes a diagnostic note when it does.
type InvestigationStage struct {
	logger    *slog.Logger
	telemetry TelemetrySource
	fallback  TelemetrySource
	topN      int
}

// NewInvestigationStage constructs the investigation stage. fallback supplies
// deterministic evidence when the primary source yields nothing usable.
func NewInvestigationStage(logger *slog.Logger, telemetry, fallback TelemetrySource, topN int) *InvestigationStage {
	if logger == nil {
		logger = slog.Default()
	}
	if topN <= 0 {
		topN = defaultTopErrorsN
	}
	if fallback == nil {
		fallback = telemetry
	}
	return &InvestigationStage{logger: logger, telemetry: telemetry, fallback: fallback, topN: topN}
}

// Gather queries the telemetry source over the triage-chosen window and
// returns the evidence package. It never fails: partial live data is kept and
// annotated, and a fully empty result is replaced by deterministic evidence
// tagged degraded.
func (s *InvestigationStage) Gather(ctx context.Context, alert models.AlertPayload, windowMinutes int) models.EvidencePackage {
	window := time.Duration(utils.ClampWindowMinutes(windowMinutes, minWindowMinutes, maxWindowMinutes, defaultWindowMinutes)) * time.Minute
	windowEnd := time.Now().UTC()
	windowStart := windowEnd.Add(-window)

	var (
		mu    sync.Mutex
		notes []string

		logs   []models.LogFinding
		series []models.SeriesPoint
		spans  []string
	)
	note := func(format string, args ...any) {
		mu.Lock()
		notes = append(notes, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.telemetry.FetchErrorLogs(gctx, alert.Service, window, s.topN)
		if err != nil {
			s.logger.Warn("error log query failed", slog.String("service", alert.Service), slog.Any("error", err))
			note("error log query failed: %v", err)
			return nil
		}
		logs = found
		return nil
	})
	g.Go(func() error {
		found, err := s.telemetry.FetchErrorRateSeries(gctx, alert.Service, window, seriesBucket)
		if err != nil {
			s.logger.Warn("error rate series query failed", slog.String("service", alert.Service), slog.Any("error", err))
			note("error rate series query failed: %v", err)
			return nil
		}
		series = found
		return nil
	})
	g.Go(func() error {
		found, err := s.telemetry.FetchSpanSummaries(gctx, alert.Service, window)
		if err != nil {
			s.logger.Warn("span summary query failed", slog.String("service", alert.Service), slog.Any("error", err))
			note("span summary query failed: %v", err)
			return nil
		}
		spans = found
		return nil
	})
	_ = g.Wait()

	mode := s.telemetry.Mode()
	if len(logs) == 0 {
		note("no live error logs found for %s in the last %d minutes; substituting deterministic evidence", alert.Service, int(window.Minutes()))
		metrics.CountFallback("telemetry")
		mode = models.ModeDegraded

		logs, _ = s.fallback.FetchErrorLogs(ctx, alert.Service, window, s.topN)
		if len(series) == 0 {
			series, _ = s.fallback.FetchErrorRateSeries(ctx, alert.Service, window, seriesBucket)
		}
		if len(spans) == 0 {
			spans, _ = s.fallback.FetchSpanSummaries(ctx, alert.Service, window)
		}
	}

	logs = patterns.Annotate(logs)

	cross := s.correlateAcrossServices(ctx, alert.Service, logs, window, mode, note)

	trend := models.TrendUnknown
	if len(series) > 0 {
		values := make([]float64, len(series))
		for i, point := range series {
			values[i] = point.Value
		}
		trend = ClassifyTrend(values)
	}

	if alert.ScreenshotBase64 != "" {
		note("alert includes a screenshot attachment")
	}

	return models.EvidencePackage{
		WindowStart:      windowStart,
		WindowEnd:        windowEnd,
		TopErrors:        logs,
		ErrorRateSeries:  series,
		Trend:            trend,
		TopPatterns:      patterns.Top(logs, maxTopPatterns),
		SpanSummaries:    spans,
		CrossServiceLogs: cross,
		ConnectorMode:    mode,
		Notes:            notes,
	}
}

// correlateAcrossServices pulls log entries from other services sharing trace
// ids with the findings, surfacing blast-radius symptoms before any graph
// traversal runs.
func (s *InvestigationStage) correlateAcrossServices(ctx context.Context, service string, logs []models.LogFinding, window time.Duration, mode models.ConnectorMode, note func(string, ...any)) []models.LogFinding {
	traceIDs := collectTraceIDs(logs, maxTraceIDs)
	if len(traceIDs) == 0 {
		return nil
	}

	source := s.telemetry
	if mode == models.ModeDegraded {
		source = s.fallback
	}
	cross, err := source.FetchCorrelatedLogs(ctx, traceIDs, service, window)
	if err != nil {
		s.logger.Warn("cross-service correlation failed", slog.String("service", service), slog.Any("error", err))
		note("cross-service correlation failed: %v", err)
		return nil
	}
	return cross
}

func collectTraceIDs(logs []models.LogFinding, limit int) []string {
	seen := make(map[string]struct{}, len(logs))
	ids := make([]string, 0, limit)
	for _, finding := range logs {
		if finding.TraceID == "" {
			continue
		}
		if _, ok := seen[finding.TraceID]; ok {
			continue
		}
		seen[finding.TraceID] = struct{}{}
		ids = append(ids, finding.TraceID)
		if len(ids) == limit {
			break
		}
	}
	return ids
}
