package integrity

import (
	"sort"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Subject is a latest-run anomaly with whatever growth history it has.
// Anomalies first seen in the latest run carry no growth rate.
type Subject struct {
	Anomaly       models.Anomaly `json:"anomaly"`
	GrowthRate    *float64       `json:"growth_rate_pct_yr,omitempty"`
	RemainingLife *float64       `json:"remaining_life_yr,omitempty"`
	RiskScore     float64        `json:"risk_score"`
	RiskCategory  string         `json:"risk_category"`
	Matched       bool           `json:"matched"`
}

func (s Subject) depth() float64 {
	if s.Anomaly.DepthPct == nil {
		return 0
	}
	return *s.Anomaly.DepthPct
}

// Subjects merges a pair's growth records with its new anomalies, ordered by
// corrected distance.
func Subjects(g *growth.Result, fresh []models.Anomaly, p params.Growth) []Subject {
	out := make([]Subject, 0, len(g.Records)+len(fresh))
	for _, r := range g.Records {
		out = append(out, Subject{
			Anomaly:       r.Later,
			GrowthRate:    r.GrowthRate,
			RemainingLife: r.RemainingLife,
			RiskScore:     r.RiskScore,
			RiskCategory:  r.RiskCategory,
			Matched:       true,
		})
	}
	for _, a := range fresh {
		s := Subject{Anomaly: a}
		s.RiskScore, s.RiskCategory = growth.Risk(a.DepthPct, nil, nil, p)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Anomaly.CorrectedDistance != out[j].Anomaly.CorrectedDistance {
			return out[i].Anomaly.CorrectedDistance < out[j].Anomaly.CorrectedDistance
		}
		return out[i].Anomaly.ID < out[j].Anomaly.ID
	})
	return out
}
