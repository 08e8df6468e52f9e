package models

// ServiceProfile is static operational context for a service, sourced from
// the registry rather than live telemetry.
type ServiceProfile struct {
	Tier             string  `yaml:"tier" json:"tier"`
	SLAMillis        float64 `yaml:"slaMillis" json:"slaMillis"`
	DownstreamFanout int     `yaml:"downstreamFanout" json:"downstreamFanout"`
}
