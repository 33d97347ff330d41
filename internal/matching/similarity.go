package matching

import (
	"math"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
	"github.com/02loveslollipop/corrosight/internal/search"
)

// Similarity is the per-term breakdown of a pair score. Depth and Dimensions
// are nil when the inputs were missing and the term was left out.
type Similarity struct {
	Distance   float64  `json:"distance"`
	Clock      float64  `json:"clock"`
	Depth      *float64 `json:"depth,omitempty"`
	Dimensions *float64 `json:"dimensions,omitempty"`
	Type       float64  `json:"type"`
	Score      float64  `json:"score"`
}

// Score rates how likely the later anomaly b is the earlier anomaly a.
// Both anomalies must carry corrected distances in the same frame.
func Score(a, b models.Anomaly, p params.Matching) Similarity {
	w := p.Weights
	var s Similarity

	s.Distance = proximity(math.Abs(b.CorrectedDistance-a.CorrectedDistance), p.DistanceToleranceFt)

	s.Clock = 0.5
	if a.ClockHours != nil && b.ClockHours != nil {
		s.Clock = proximity(search.ClockDelta(*a.ClockHours, *b.ClockHours), p.ClockToleranceHours)
	}

	if a.DepthPct != nil && b.DepthPct != nil {
		d := depthScore(*b.DepthPct-*a.DepthPct, p)
		s.Depth = &d
	}

	var dims []float64
	if a.LengthIn != nil && b.LengthIn != nil {
		dims = append(dims, proximity(math.Abs(*b.LengthIn-*a.LengthIn), p.DimensionToleranceIn))
	}
	if a.WidthIn != nil && b.WidthIn != nil {
		dims = append(dims, proximity(math.Abs(*b.WidthIn-*a.WidthIn), p.DimensionToleranceIn))
	}
	if len(dims) > 0 {
		var sum float64
		for _, d := range dims {
			sum += d
		}
		avg := sum / float64(len(dims))
		s.Dimensions = &avg
	}

	s.Type = typeScore(a.EventType, b.EventType, p.CompatibleTypeScore)

	total := w.Distance*s.Distance + w.Clock*s.Clock + w.Type*s.Type
	weight := w.Distance + w.Clock + w.Type
	if s.Depth != nil {
		total += w.Depth * *s.Depth
		weight += w.Depth
	}
	if s.Dimensions != nil {
		total += w.Dimensions * *s.Dimensions
		weight += w.Dimensions
	}
	if weight > 0 {
		s.Score = total / weight
	}
	return s
}

// depthScore tolerates growth more than apparent shrinkage.
func depthScore(delta float64, p params.Matching) float64 {
	if delta >= 0 {
		return proximity(delta, p.DepthGrowthScale)
	}
	return proximity(-delta, p.DepthShrinkScale)
}

func typeScore(a, b string, compatible float64) float64 {
	a, b = models.NormalizeEventType(a), models.NormalizeEventType(b)
	switch {
	case a == b:
		return 1
	case models.TypesCompatible(a, b):
		return compatible
	default:
		return 0
	}
}

func proximity(delta, scale float64) float64 {
	return math.Max(0, 1-delta/scale)
}
