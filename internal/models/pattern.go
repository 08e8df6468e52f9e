package models

import "time"

// ErrorPattern aggregates log findings that share a classified error kind.
type ErrorPattern struct {
	Kind     string    `json:"kind"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
	Sample   string    `json:"sample"`
}
