package integrity

import (
	"fmt"
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/params"
)

// Dig categories.
const (
	DigImmediate = "IMMEDIATE"
	DigScheduled = "SCHEDULED"
	DigMonitor   = "MONITOR"
)

// DigEntry is one anomaly recommended for excavation or monitoring.
type DigEntry struct {
	Rank          int      `json:"rank"`
	AnomalyID     string   `json:"anomaly_id"`
	DistanceFt    float64  `json:"distance_ft"`
	JointNumber   *int     `json:"joint_number,omitempty"`
	ClockHours    *float64 `json:"clock_hours,omitempty"`
	DepthPct      float64  `json:"depth_pct"`
	GrowthRate    *float64 `json:"growth_rate_pct_yr,omitempty"`
	RemainingLife *float64 `json:"remaining_life_yr,omitempty"`
	Urgency       float64  `json:"urgency"`
	Category      string   `json:"category"`
	Reasons       []string `json:"reasons"`
}

// Urgency blends depth, growth and remaining-life components, each 0-100.
func Urgency(depth float64, rate, life *float64, p params.Params) float64 {
	depthC := math.Min(100, depth/p.Growth.RepairThreshold*100)

	growthC := 0.0
	if rate != nil && *rate > 0 {
		growthC = math.Min(100, *rate/p.Growth.MaxPlausibleRate*100)
	}

	lifeC := 0.0
	if life != nil {
		lifeC = 100 * math.Max(0, math.Min(1, 1-*life/p.Growth.LifeHorizonYears))
	}
	w := p.Integrity.UrgencyWeights
	return w.Depth*depthC + w.Growth*growthC + w.Life*lifeC
}

// Categorize assigns a dig category. ok is false for anomalies that are
// neither urgent nor growing.
func Categorize(urgency, depth float64, rate, life *float64, p params.Integrity) (category string, reasons []string, ok bool) {
	switch {
	case urgency >= p.ImmediateUrgency:
		reasons = append(reasons, fmt.Sprintf("urgency %.1f >= %.0f", urgency, p.ImmediateUrgency))
	case depth >= p.ImmediateDepth:
		reasons = append(reasons, fmt.Sprintf("depth %.1f%% >= %.0f%%", depth, p.ImmediateDepth))
	case life != nil && *life < p.ImmediateLifeYears:
		reasons = append(reasons, fmt.Sprintf("remaining life %.1fy < %.0fy", *life, p.ImmediateLifeYears))
	}
	if len(reasons) > 0 {
		return DigImmediate, reasons, true
	}

	switch {
	case urgency >= p.ScheduledUrgency:
		reasons = append(reasons, fmt.Sprintf("urgency %.1f >= %.0f", urgency, p.ScheduledUrgency))
	case depth >= p.ScheduledDepth:
		reasons = append(reasons, fmt.Sprintf("depth %.1f%% >= %.0f%%", depth, p.ScheduledDepth))
	case life != nil && *life < p.ScheduledLifeYears:
		reasons = append(reasons, fmt.Sprintf("remaining life %.1fy < %.0fy", *life, p.ScheduledLifeYears))
	}
	if len(reasons) > 0 {
		return DigScheduled, reasons, true
	}

	if rate != nil && *rate > 0 {
		return DigMonitor, []string{fmt.Sprintf("growing %.2f%%/yr", *rate)}, true
	}
	return "", nil, false
}

// DigList ranks subjects by urgency, then depth.
func DigList(subjects []Subject, p params.Params) []DigEntry {
	out := make([]DigEntry, 0)
	for _, s := range subjects {
		depth := s.depth()
		urgency := Urgency(depth, s.GrowthRate, s.RemainingLife, p)
		category, reasons, ok := Categorize(urgency, depth, s.GrowthRate, s.RemainingLife, p.Integrity)
		if !ok {
			continue
		}
		out = append(out, DigEntry{
			AnomalyID:     s.Anomaly.ID,
			DistanceFt:    s.Anomaly.CorrectedDistance,
			JointNumber:   s.Anomaly.JointNumber,
			ClockHours:    s.Anomaly.ClockHours,
			DepthPct:      depth,
			GrowthRate:    s.GrowthRate,
			RemainingLife: s.RemainingLife,
			Urgency:       urgency,
			Category:      category,
			Reasons:       reasons,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Urgency != b.Urgency {
			return a.Urgency > b.Urgency
		}
		if a.DepthPct != b.DepthPct {
			return a.DepthPct > b.DepthPct
		}
		return a.AnomalyID < b.AnomalyID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
