package matching

import (
	"math"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Confidence labels.
const (
	LabelHigh   = "HIGH"
	LabelMedium = "MEDIUM"
	LabelLow    = "LOW"
)

// Label maps a confidence value onto HIGH, MEDIUM or LOW.
func Label(confidence float64, p params.Matching) string {
	switch {
	case confidence >= p.HighConfidence:
		return LabelHigh
	case confidence >= p.MediumConfidence:
		return LabelMedium
	default:
		return LabelLow
	}
}

// Uniqueness rewards a pair whose score clearly beats the best competing
// edge on either endpoint. next < 0 means there is no competitor.
func Uniqueness(score, next, scale float64) float64 {
	if next < 0 {
		return 1
	}
	return clamp01((score - next) / scale)
}

// GrowthPlausibility scores an implied depth growth rate in %/yr.
func GrowthPlausibility(rate *float64, maxRate float64) float64 {
	if rate == nil {
		return 0.5
	}
	r := *rate
	switch {
	case r < 0:
		return math.Max(0, 0.5+r/10)
	case r > maxRate:
		return math.Max(0.2, 1-(r-maxRate)/10)
	default:
		return 1
	}
}

// JointAgreement scores whether both runs put the anomalies in the same joint.
func JointAgreement(a, b models.Anomaly) float64 {
	switch {
	case a.JointNumber == nil || b.JointNumber == nil:
		return 0.5
	case *a.JointNumber == *b.JointNumber:
		return 1
	default:
		return 0.6
	}
}

// Confidence blends the four factors with the configured weights.
func Confidence(similarity, uniqueness, plausibility, joint float64, w params.ConfidenceWeights) float64 {
	total := w.Similarity + w.Uniqueness + w.Plausibility + w.JointAgreement
	if total <= 0 {
		return 0
	}
	c := w.Similarity*similarity + w.Uniqueness*uniqueness + w.Plausibility*plausibility + w.JointAgreement*joint
	return clamp01(c / total)
}

// ImpliedRate is the depth growth rate between two observations, or nil when
// either depth is missing.
func ImpliedRate(a, b models.Anomaly, years float64) *float64 {
	if a.DepthPct == nil || b.DepthPct == nil || years <= 0 {
		return nil
	}
	r := (*b.DepthPct - *a.DepthPct) / years
	return &r
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
