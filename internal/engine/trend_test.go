package engine

import (
	"testing"

	"github.com/ariastack/aria-engine/internal/models"
)

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   models.Trend
	}{
		{"monotonic growth", []float64{11, 13, 17, 94, 181, 243, 287}, models.TrendRising},
		{"flat noise", []float64{10, 10, 11, 10, 9, 10}, models.TrendStable},
		{"noise exactly at the floor", []float64{96, 104, 96, 104}, models.TrendStable},
		{"rise then fall", []float64{10, 40, 70, 60, 30, 15}, models.TrendPeaked},
		{"monotonic decline", []float64{80, 60, 41, 20, 5}, models.TrendFalling},
		{"oscillating", []float64{10, 80, 5, 90, 8, 75}, models.TrendFlapping},
		{"too few points", []float64{5, 500}, models.TrendStable},
		{"empty", nil, models.TrendStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyTrend(tc.values); got != tc.want {
				t.Fatalf("ClassifyTrend(%v) = %s, want %s", tc.values, got, tc.want)
			}
		})
	}
}
