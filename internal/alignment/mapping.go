package alignment

import (
	"sort"

	"github.com/02loveslollipop/corrosight/internal/models"
)

// Anchor ties a raw distance in the earlier run to the later run's frame.
type Anchor struct {
	Raw         float64 `json:"raw_ft"`
	Corrected   float64 `json:"corrected_ft"`
	JointNumber *int    `json:"joint_number,omitempty"`
	Method      string  `json:"method"`
}

const (
	MethodJoint   = "joint_number"
	MethodNearest = "nearest_distance"
)

// Mapping is a monotone piecewise-linear correction of odometer distance.
// Raw and Corrected are strictly increasing across Anchors.
type Mapping struct {
	Anchors []Anchor `json:"anchors"`
}

// NewMapping sorts the anchors by raw distance and drops any anchor that
// repeats a raw distance or would make the corrected distance non-increasing.
// The first occurrence wins in both cases.
func NewMapping(anchors []Anchor) Mapping {
	sorted := make([]Anchor, len(anchors))
	copy(sorted, anchors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Raw < sorted[j].Raw })

	kept := make([]Anchor, 0, len(sorted))
	for _, a := range sorted {
		if n := len(kept); n > 0 {
			last := kept[n-1]
			if a.Raw <= last.Raw || a.Corrected <= last.Corrected {
				continue
			}
		}
		kept = append(kept, a)
	}
	return Mapping{Anchors: kept}
}

// Correct maps a raw distance into the later run's frame. Between anchors it
// interpolates linearly; beyond either end it holds the boundary drift.
func (m Mapping) Correct(raw float64) float64 {
	n := len(m.Anchors)
	switch {
	case n == 0:
		return raw
	case raw <= m.Anchors[0].Raw:
		first := m.Anchors[0]
		return raw + (first.Corrected - first.Raw)
	case raw >= m.Anchors[n-1].Raw:
		last := m.Anchors[n-1]
		return raw + (last.Corrected - last.Raw)
	}

	i := sort.Search(n, func(i int) bool { return m.Anchors[i].Raw >= raw })
	hi, lo := m.Anchors[i], m.Anchors[i-1]
	if hi.Raw == raw {
		return hi.Corrected
	}
	t := (raw - lo.Raw) / (hi.Raw - lo.Raw)
	return lo.Corrected + t*(hi.Corrected-lo.Corrected)
}

// Apply returns copies of the anomalies with CorrectedDistance set.
func (m Mapping) Apply(anomalies []models.Anomaly) []models.Anomaly {
	out := make([]models.Anomaly, len(anomalies))
	for i, a := range anomalies {
		a.CorrectedDistance = m.Correct(a.Distance)
		out[i] = a
	}
	return out
}

// Identity returns copies with CorrectedDistance equal to the raw distance,
// used for the run whose frame is the reference.
func Identity(anomalies []models.Anomaly) []models.Anomaly {
	return Mapping{}.Apply(anomalies)
}
