package models

// Runbook is a historical remediation document matched to this incident.
type Runbook struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Steps           []string `json:"steps"`
	LastUsedAt      string   `json:"lastUsedAt,omitempty"`
	SimilarityScore float64  `json:"similarityScore"`
}

// DependencyGraph is the blast-radius lookup result from the graph connector.
type DependencyGraph struct {
	ImpactedServices []string      `json:"impactedServices"`
	UpstreamServices []string      `json:"upstreamServices"`
	Mode             ConnectorMode `json:"mode"`
}

// Hypothesis is one candidate root cause with supporting evidence citations
// and ordered remediation steps.
type Hypothesis struct {
	Title       string   `json:"title"`
	Probability float64  `json:"probability"`
	Evidence    []string `json:"evidence"`
	Remediation []string `json:"remediation"`
}

// RCADraft is the reasoning connector's raw synthesis output before the stage
// attaches lookups and enforces ordering.
type RCADraft struct {
	Narrative       string       `json:"narrative"`
	Confidence      float64      `json:"confidence"`
	Hypotheses      []Hypothesis `json:"hypotheses"`
	RecommendedPlan []string     `json:"recommendedPlan"`
}

// RCAResult is the root-cause stage's final output. Hypotheses are always
// ordered by probability descending; the stage owns that ordering.
type RCAResult struct {
	Hypotheses       []Hypothesis  `json:"hypotheses"`
	BlastRadius      []string      `json:"blastRadius"`
	UpstreamServices []string      `json:"upstreamServices,omitempty"`
	Runbooks         []Runbook     `json:"runbooks"`
	RecommendedPlan  []string      `json:"recommendedPlan"`
	Confidence       float64       `json:"confidence"`
	Narrative        string        `json:"narrative"`
	GraphMode        ConnectorMode `json:"graphMode,omitempty"`
	RunbookMode      ConnectorMode `json:"runbookMode,omitempty"`
}
