package models

import "time"

// StepStatus tracks a timeline step through its lifecycle.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// TimelineStep is one entry of the append-only progress timeline. Steps are
// emitted and never mutated afterwards.
type TimelineStep struct {
	ID        string         `json:"id"`
	Stage     string         `json:"stage"`
	Status    StepStatus     `json:"status"`
	Title     string         `json:"title"`
	Detail    string         `json:"detail"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventType enumerates the orchestrator's stream events.
type EventType string

const (
	EventStep                 EventType = "step"
	EventConfirmationRequired EventType = "confirmation_required"
	EventReport               EventType = "report"
	EventError                EventType = "error"
)

// Event is one element of the ordered per-run stream. Exactly one terminal
// event (report or error) ends every stream.
type Event struct {
	Type    EventType            `json:"type"`
	Step    *TimelineStep        `json:"step,omitempty"`
	Triage  *TriageResult        `json:"triage,omitempty"`
	Report  *InvestigationReport `json:"report,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventReport || e.Type == EventError
}

// InvestigationReport is the terminal artifact: it exists only after the
// pipeline completes and is never exposed partially constructed.
type InvestigationReport struct {
	Alert    AlertPayload    `json:"alert"`
	Triage   TriageResult    `json:"triage"`
	Evidence EvidencePackage `json:"evidence"`
	RCA      RCAResult       `json:"rca"`
}
