package models

// Severity classifies incident impact, ordered most to least severe.
type Severity string

const (
	SeveritySev0 Severity = "sev0"
	SeveritySev1 Severity = "sev1"
	SeveritySev2 Severity = "sev2"
	SeveritySev3 Severity = "sev3"
)

// Rank maps a severity to an integer where lower means more severe. Unknown
// values rank below sev3 so they never accidentally escalate.
func (s Severity) Rank() int {
	switch s {
	case SeveritySev0:
		return 0
	case SeveritySev1:
		return 1
	case SeveritySev2:
		return 2
	case SeveritySev3:
		return 3
	default:
		return 4
	}
}

// Valid reports whether s is one of the known severity classes.
func (s Severity) Valid() bool {
	return s.Rank() <= SeveritySev3.Rank()
}

// MoreSevereThan reports whether s outranks other.
func (s Severity) MoreSevereThan(other Severity) bool {
	return s.Rank() < other.Rank()
}

// CauseCategory is the triage stage's coarse guess at the failure class.
type CauseCategory string

const (
	CauseRecentDeploy      CauseCategory = "recent_deploy"
	CauseDependencyFailure CauseCategory = "dependency_failure"
	CauseLoadSpike         CauseCategory = "load_spike"
	CauseUnknown           CauseCategory = "unknown"
)

// TriageResult is produced twice per run: a snapshot-only pass before evidence
// collection and a refinement pass after. The refinement supersedes the first
// pass for all downstream use.
type TriageResult struct {
	Severity                   Severity      `json:"severity"`
	AffectedService            string        `json:"affectedService"`
	UrgencyReason              string        `json:"urgencyReason"`
	InvestigationWindowMinutes int           `json:"investigationWindowMinutes"`
	Confidence                 float64       `json:"confidence"`
	EscalateImmediately        bool          `json:"escalateImmediately"`
	LikelyCause                CauseCategory `json:"likelyCause"`
	RequiresHumanConfirmation  bool          `json:"requiresHumanConfirmation"`
	DataQualityWarning         string        `json:"dataQualityWarning,omitempty"`
}
