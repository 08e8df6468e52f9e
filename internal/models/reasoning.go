package models

// TriageContext is the structured input handed to the reasoning connector for
// both triage passes. Prior and Evidence are nil on the first pass.
type TriageContext struct {
	Alert         AlertPayload     `json:"alert"`
	Profile       *ServiceProfile  `json:"profile,omitempty"`
	RecentDeploys []string         `json:"recentDeploys,omitempty"`
	Prior         *TriageResult    `json:"prior,omitempty"`
	Evidence      *EvidencePackage `json:"evidence,omitempty"`
}

// RCAContext is the full evidence package handed to the reasoning connector
// for root-cause synthesis.
type RCAContext struct {
	Alert       AlertPayload    `json:"alert"`
	Triage      TriageResult    `json:"triage"`
	Evidence    EvidencePackage `json:"evidence"`
	BlastRadius DependencyGraph `json:"blastRadius"`
	Runbooks    []Runbook       `json:"runbooks"`
}
