package engine

import (
	"math"

	"github.com/ariastack/aria-engine/internal/models"
)

// ClassifyTrend labels the shape of a bucketed error-count series. Pure
// function; thresholds 0.08 (noise floor relative to mean magnitude) and 0.6
// (majority share per half) are part of the contract.
func ClassifyTrend(values []float64) models.Trend {
	if len(values) < 3 {
		return models.TrendStable
	}

	deltas := make([]float64, 0, len(values)-1)
	var sumAbsValue, sumAbsDelta float64
	for i, v := range values {
		sumAbsValue += math.Abs(v)
		if i > 0 {
			d := v - values[i-1]
			deltas = append(deltas, d)
			sumAbsDelta += math.Abs(d)
		}
	}

	// Inclusive: movement exactly at the noise floor is still noise.
	meanAbsValue := sumAbsValue / float64(len(values))
	meanAbsDelta := sumAbsDelta / float64(len(deltas))
	if meanAbsDelta <= 0.08*meanAbsValue {
		return models.TrendStable
	}

	allPositive, allNegative := true, true
	for _, d := range deltas {
		if d <= 0 {
			allPositive = false
		}
		if d >= 0 {
			allNegative = false
		}
	}
	if allPositive {
		return models.TrendRising
	}
	if allNegative {
		return models.TrendFalling
	}

	mid := len(deltas) / 2
	firstPositive := 0
	for _, d := range deltas[:mid] {
		if d > 0 {
			firstPositive++
		}
	}
	secondNegative := 0
	for _, d := range deltas[mid:] {
		if d < 0 {
			secondNegative++
		}
	}
	if mid > 0 &&
		float64(firstPositive) >= 0.6*float64(mid) &&
		float64(secondNegative) >= 0.6*float64(len(deltas)-mid) {
		return models.TrendPeaked
	}
	return models.TrendFlapping
}
