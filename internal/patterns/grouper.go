package patterns

import (
	"sort"
	"strings"

	"github.com/ariastack/aria-engine/internal/models"
)

// Error kinds recognised by the classifier. KindGeneric is the catch-all.
const (
	KindConnectionPool = "connection_pool_exhaustion"
	KindTimeout        = "timeout"
	KindRetryStorm     = "retry_storm"
	KindConnRefused    = "connection_refused"
	KindDNS            = "dns_resolution"
	KindOOM            = "out_of_memory"
	KindGeneric        = "elevated_errors"
)

// Classify maps a raw error message onto a coarse error kind. Checks are
// ordered most-specific first; the first match wins.
func Classify(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "pool exhausted"), strings.Contains(msg, "connection pool"):
		return KindConnectionPool
	case strings.Contains(msg, "retry storm"), strings.Contains(msg, "retries/min"):
		return KindRetryStorm
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "connection refused"):
		return KindConnRefused
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "dns"):
		return KindDNS
	case strings.Contains(msg, "out of memory"), strings.Contains(msg, "oom"):
		return KindOOM
	default:
		return KindGeneric
	}
}

// Annotate returns a copy of findings with ErrorKind filled in for entries
// that lack one. The input slice is not mutated.
func Annotate(findings []models.LogFinding) []models.LogFinding {
	out := make([]models.LogFinding, len(findings))
	copy(out, findings)
	for i := range out {
		if out[i].ErrorKind == "" {
			out[i].ErrorKind = Classify(out[i].Message)
		}
	}
	return out
}

// Top aggregates findings into per-kind patterns ordered by occurrence count
// descending, recency breaking ties, truncated to limit.
func Top(findings []models.LogFinding, limit int) []models.ErrorPattern {
	if len(findings) == 0 {
		return nil
	}

	byKind := make(map[string]*models.ErrorPattern)
	for _, f := range findings {
		kind := f.ErrorKind
		if kind == "" {
			kind = Classify(f.Message)
		}
		weight := f.Count
		if weight < 1 {
			weight = 1
		}
		pattern, ok := byKind[kind]
		if !ok {
			pattern = &models.ErrorPattern{Kind: kind}
			byKind[kind] = pattern
		}
		pattern.Count += weight
		if f.Timestamp.After(pattern.LastSeen) {
			pattern.LastSeen = f.Timestamp
			pattern.Sample = f.Message
		}
	}

	patterns := make([]models.ErrorPattern, 0, len(byKind))
	for _, p := range byKind {
		patterns = append(patterns, *p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].LastSeen.After(patterns[j].LastSeen)
	})

	if limit > 0 && len(patterns) > limit {
		patterns = patterns[:limit]
	}
	return patterns
}
