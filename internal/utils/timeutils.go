package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// ClampWindowMinutes bounds an investigation window to [min,max], substituting
// fallback when the value is unset.
func ClampWindowMinutes(minutes, min, max, fallback int) int {
	if minutes <= 0 {
		return fallback
	}
	if minutes < min {
		return min
	}
	if minutes > max {
		return max
	}
	return minutes
}

// BucketStart truncates ts down to the containing fixed-width bucket.
func BucketStart(ts time.Time, width time.Duration) time.Time {
	if width <= 0 {
		return ts
	}
	return ts.Truncate(width)
}
