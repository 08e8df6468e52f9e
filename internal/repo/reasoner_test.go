package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"markdown fence", "Here you go:\n```json\n{\"a\":1}\n```\n", `{"a":1}`},
		{"prose around", `The answer is {"severity":"sev1"} as requested.`, `{"severity":"sev1"}`},
		{"no object", "sorry, cannot comply", ""},
		{"reversed braces", "}{", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.in); got != tc.want {
				t.Fatalf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if clamp01(-0.5) != 0 || clamp01(1.5) != 1 || clamp01(0.42) != 0.42 {
		t.Fatal("clamp01 bounds not enforced")
	}
}

func TestDisabledReasonerReportsUnavailable(t *testing.T) {
	reasoner := NewDisabledReasoner()

	_, err := reasoner.SynthesizeTriage(context.Background(), models.TriageContext{})
	if err == nil {
		t.Fatal("disabled reasoner must error")
	}
	var app *utils.AppError
	if !errors.As(err, &app) || app.Kind != utils.KindUnavailable {
		t.Fatalf("triage error = %v, want unavailable AppError", err)
	}

	if _, err := reasoner.SynthesizeRCA(context.Background(), models.RCAContext{}); err == nil {
		t.Fatal("disabled reasoner must error for rca too")
	}
}
