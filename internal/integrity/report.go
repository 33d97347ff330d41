package integrity

import (
	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Summary is the dashboard view of a report.
type Summary struct {
	Pair                 string         `json:"pair"`
	Subjects             int            `json:"subjects"`
	Segments             int            `json:"segments"`
	HighRiskSegments     int            `json:"high_risk_segments"`
	MaxSegmentRisk       float64        `json:"max_segment_risk"`
	Clusters             int            `json:"clusters"`
	HighSeverityClusters int            `json:"high_severity_clusters"`
	DigCounts            map[string]int `json:"dig_counts"`
	ByRisk               map[string]int `json:"by_risk"`
}

// Report is the integrity analysis of the latest run pair.
type Report struct {
	Pair         models.RunPair `json:"pair"`
	Subjects     []Subject      `json:"-"`
	Segments     []Segment      `json:"segments"`
	Interactions []Cluster      `json:"interactions"`
	DigList      []DigEntry     `json:"dig_list"`
	Population   Population     `json:"population"`
	Summary      Summary        `json:"summary"`
}

// Analyze runs every integrity analysis over a pair's growth records and
// its new anomalies.
func Analyze(g *growth.Result, fresh []models.Anomaly, p params.Params) *Report {
	subjects := Subjects(g, fresh, p.Growth)
	r := &Report{
		Pair:         g.Pair,
		Subjects:     subjects,
		Segments:     Segments(subjects, p),
		Interactions: Interactions(subjects, p.Integrity),
		DigList:      DigList(subjects, p),
		Population:   PopulationStats(subjects, p.Integrity),
	}

	s := Summary{
		Pair:      g.Pair.Key(),
		Subjects:  len(subjects),
		Segments:  len(r.Segments),
		Clusters:  len(r.Interactions),
		DigCounts: map[string]int{DigImmediate: 0, DigScheduled: 0, DigMonitor: 0},
		ByRisk:    map[string]int{growth.RiskCritical: 0, growth.RiskHigh: 0, growth.RiskMedium: 0, growth.RiskLow: 0},
	}
	for _, seg := range r.Segments {
		if seg.HighRisk {
			s.HighRiskSegments++
		}
		if seg.RiskScore > s.MaxSegmentRisk {
			s.MaxSegmentRisk = seg.RiskScore
		}
	}
	for _, c := range r.Interactions {
		if c.Severity == SeverityHigh {
			s.HighSeverityClusters++
		}
	}
	for _, d := range r.DigList {
		s.DigCounts[d.Category]++
	}
	for _, sub := range subjects {
		s.ByRisk[sub.RiskCategory]++
	}
	r.Summary = s
	return r
}
