package models

import "time"

// ConnectorMode discloses whether a data source answered from a real backing
// system or a deterministic substitute.
type ConnectorMode string

const (
	ModeLive     ConnectorMode = "live"
	ModeDegraded ConnectorMode = "degraded"
)

// Trend classifies the shape of the error-rate series over the window.
type Trend string

const (
	TrendRising   Trend = "rising"
	TrendPeaked   Trend = "peaked"
	TrendFalling  Trend = "falling"
	TrendFlapping Trend = "flapping"
	TrendStable   Trend = "stable"
	TrendUnknown  Trend = "unknown"
)

// LogFinding is a single high-signal log entry surfaced by the investigation.
type LogFinding struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Count      int       `json:"count,omitempty"`
	StackTrace string    `json:"stackTrace,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	TraceID    string    `json:"traceId,omitempty"`
	Host       string    `json:"host,omitempty"`
}

// SeriesPoint is one bucket of the error-rate time series.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// EvidencePackage is built once per run by the investigation stage and
// read-only afterwards.
type EvidencePackage struct {
	WindowStart      time.Time      `json:"windowStart"`
	WindowEnd        time.Time      `json:"windowEnd"`
	TopErrors        []LogFinding   `json:"topErrors"`
	ErrorRateSeries  []SeriesPoint  `json:"errorRateSeries"`
	Trend            Trend          `json:"trend"`
	TopPatterns      []ErrorPattern `json:"topPatterns,omitempty"`
	SpanSummaries    []string       `json:"spanSummaries"`
	CrossServiceLogs []LogFinding   `json:"crossServiceLogs,omitempty"`
	ConnectorMode    ConnectorMode  `json:"connectorMode"`
	Notes            []string       `json:"notes,omitempty"`
}
