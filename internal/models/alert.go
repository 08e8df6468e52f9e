package models

import (
	"fmt"

	"github.com/ariastack/aria-engine/internal/utils"
)

// AlertPayload is the caller-submitted incident alert. It is immutable once
// accepted: every stage reads it, none mutates it.
type AlertPayload struct {
	IncidentID       string  `json:"incidentId"`
	Service          string  `json:"service"`
	Summary          string  `json:"summary"`
	P99LatencyMs     float64 `json:"p99LatencyMs"`
	ErrorRatePct     float64 `json:"errorRatePct"`
	StartedAt        string  `json:"startedAt"`
	ScreenshotBase64 string  `json:"screenshotBase64,omitempty"`
}

// Validate rejects malformed alerts before the pipeline starts.
func (a AlertPayload) Validate() error {
	if a.IncidentID == "" {
		return fmt.Errorf("incidentId is required")
	}
	if a.Service == "" {
		return fmt.Errorf("service is required")
	}
	if a.P99LatencyMs < 0 {
		return fmt.Errorf("p99LatencyMs must be >= 0, got %f", a.P99LatencyMs)
	}
	if a.ErrorRatePct < 0 {
		return fmt.Errorf("errorRatePct must be >= 0, got %f", a.ErrorRatePct)
	}
	if a.StartedAt != "" {
		if _, err := utils.ParseRFC3339(a.StartedAt); err != nil {
			return fmt.Errorf("startedAt is not RFC-3339: %w", err)
		}
	}
	return nil
}
