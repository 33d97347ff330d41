package integrity

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Segment is a fixed-length stretch of pipe with an aggregate risk score.
type Segment struct {
	Index             int      `json:"index"`
	StartFt           float64  `json:"start_ft"`
	EndFt             float64  `json:"end_ft"`
	Count             int      `json:"count"`
	MaxDepth          float64  `json:"max_depth_pct"`
	AvgGrowth         *float64 `json:"avg_growth_pct_yr,omitempty"`
	Critical          int      `json:"critical"`
	DensityComponent  float64  `json:"density_component"`
	DepthComponent    float64  `json:"depth_component"`
	GrowthComponent   float64  `json:"growth_component"`
	CriticalComponent float64  `json:"critical_component"`
	RiskScore         float64  `json:"risk_score"`
	HighRisk          bool     `json:"high_risk"`
}

// Segments buckets subjects into SegmentLengthFt stretches and scores each
// populated one, in pipeline order.
func Segments(subjects []Subject, p params.Params) []Segment {
	length := p.Integrity.SegmentLengthFt

	type bucket struct {
		seg   Segment
		sum   float64
		rated int
	}
	buckets := make(map[int]*bucket)
	for _, s := range subjects {
		k := int(math.Floor(s.Anomaly.CorrectedDistance / length))
		b, ok := buckets[k]
		if !ok {
			b = &bucket{seg: Segment{Index: k, StartFt: float64(k) * length, EndFt: float64(k+1) * length}}
			buckets[k] = b
		}
		b.seg.Count++
		b.seg.MaxDepth = math.Max(b.seg.MaxDepth, s.depth())
		if s.RiskCategory == growth.RiskCritical {
			b.seg.Critical++
		}
		if s.GrowthRate != nil {
			b.sum += *s.GrowthRate
			b.rated++
		}
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	w := p.Integrity.SegmentWeights
	segs := make([]Segment, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		seg := b.seg
		avg := 0.0
		if b.rated > 0 {
			avg = math.Max(0, b.sum/float64(b.rated))
			seg.AvgGrowth = &avg
		}
		seg.DensityComponent = w.Density * math.Min(1, float64(seg.Count)/p.Integrity.SegmentCountScale)
		seg.DepthComponent = w.Depth * math.Min(1, seg.MaxDepth/p.Growth.RepairThreshold)
		seg.GrowthComponent = w.Growth * math.Min(1, avg/p.Integrity.HighGrowthRate)
		seg.CriticalComponent = w.Critical * math.Min(1, float64(seg.Critical)/p.Integrity.SegmentCriticalScale)
		seg.RiskScore = seg.DensityComponent + seg.DepthComponent + seg.GrowthComponent + seg.CriticalComponent
		seg.HighRisk = seg.RiskScore >= p.Integrity.HighRiskSegment
		segs = append(segs, seg)
	}
	return segs
}
