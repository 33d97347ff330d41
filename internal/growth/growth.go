package growth

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Risk categories.
const (
	RiskCritical = "Critical"
	RiskHigh     = "High"
	RiskMedium   = "Medium"
	RiskLow      = "Low"
)

// Growth classes.
const (
	ClassShrinkage = "Apparent Shrinkage"
	ClassStable    = "Stable"
	ClassLow       = "Low"
	ClassModerate  = "Moderate"
	ClassHigh      = "High"
	ClassSevere    = "Severe"
	ClassUnknown   = "Unknown"
)

// Record is a match annotated with growth, remaining life and risk.
type Record struct {
	matching.Match
	GrowthRate     *float64 `json:"growth_rate_pct_yr,omitempty"`
	LengthRate     *float64 `json:"length_rate_in_yr,omitempty"`
	WidthRate      *float64 `json:"width_rate_in_yr,omitempty"`
	RemainingLife  *float64 `json:"remaining_life_yr,omitempty"`
	RiskScore      float64  `json:"risk_score"`
	RiskCategory   string   `json:"risk_category"`
	GrowthClass    string   `json:"growth_class"`
	OutlierIQR     bool     `json:"outlier_iqr"`
	OutlierCeiling bool     `json:"outlier_ceiling"`
}

// Outlier reports whether either outlier rule flagged the record.
func (r Record) Outlier() bool {
	return r.OutlierIQR || r.OutlierCeiling
}

// ID is the later anomaly's id, which keys the record in its pair.
func (r Record) ID() string {
	return r.Later.ID
}

// Result is the growth analysis of one run pair.
type Result struct {
	Pair    models.RunPair `json:"pair"`
	Records []Record       `json:"records"`
	Summary Summary        `json:"summary"`
}

// RemainingLife is the years until depth reaches threshold at rate. It is
// nil when the anomaly is not growing and zero for a growing anomaly already
// at or past the threshold.
func RemainingLife(depth, rate, threshold float64) *float64 {
	if rate <= 0 {
		return nil
	}
	life := math.Max(0, (threshold-depth)/rate)
	return &life
}

// Risk scores an anomaly 0-100 from depth, growth rate and remaining life.
func Risk(depth, rate, life *float64, p params.Growth) (float64, string) {
	var score float64
	if depth != nil {
		score += math.Min(40, *depth/p.RepairThreshold*40)
	}
	if rate != nil && *rate > 0 {
		score += math.Min(30, *rate/p.MaxPlausibleRate*30)
	}
	if life != nil {
		score += 30 * clamp01(1-*life/p.LifeHorizonYears)
	}

	category := RiskLow
	switch {
	case score >= 70:
		category = RiskCritical
	case score >= 50:
		category = RiskHigh
	case score >= 30:
		category = RiskMedium
	}

	critical := (depth != nil && *depth >= p.CriticalDepth) || (life != nil && *life < p.CriticalLifeYears)
	if critical && category != RiskCritical {
		category = RiskHigh
	}
	return score, category
}

// Class buckets a growth rate.
func Class(rate *float64, p params.Growth) string {
	if rate == nil {
		return ClassUnknown
	}
	r := *rate
	switch {
	case r < 0:
		return ClassShrinkage
	case r == 0:
		return ClassStable
	case r <= p.LowRate:
		return ClassLow
	case r <= p.HighRate:
		return ClassModerate
	case r <= p.MaxPlausibleRate:
		return ClassHigh
	default:
		return ClassSevere
	}
}

// Annotate computes growth for every match of a pair. Outliers are flagged
// and kept.
func Annotate(res *matching.Result, p params.Growth) *Result {
	years := res.Pair.Years()
	out := &Result{Pair: res.Pair, Records: make([]Record, 0, len(res.Matches))}

	for _, m := range res.Matches {
		r := Record{Match: m}
		r.GrowthRate = matching.ImpliedRate(m.Earlier, m.Later, years)
		r.LengthRate = rate(m.Earlier.LengthIn, m.Later.LengthIn, years)
		r.WidthRate = rate(m.Earlier.WidthIn, m.Later.WidthIn, years)

		if m.Later.DepthPct != nil && r.GrowthRate != nil {
			r.RemainingLife = RemainingLife(*m.Later.DepthPct, *r.GrowthRate, p.RepairThreshold)
		}
		r.RiskScore, r.RiskCategory = Risk(m.Later.DepthPct, r.GrowthRate, r.RemainingLife, p)
		r.GrowthClass = Class(r.GrowthRate, p)
		out.Records = append(out.Records, r)
	}

	flagOutliers(out.Records, p)
	out.Summary = Summarize(out.Records, p)
	return out
}

func flagOutliers(records []Record, p params.Growth) {
	rates := knownRates(records)
	if len(rates) == 0 {
		return
	}
	sort.Float64s(rates)
	q1, q3 := Quantile(rates, 0.25), Quantile(rates, 0.75)
	iqr := q3 - q1
	lo, hi := q1-p.OutlierIQRFactor*iqr, q3+p.OutlierIQRFactor*iqr

	for i := range records {
		r := records[i].GrowthRate
		if r == nil {
			continue
		}
		records[i].OutlierIQR = *r < lo || *r > hi
		records[i].OutlierCeiling = *r > p.MaxPlausibleRate
	}
}

// TopConcerns returns up to n records ranked by risk score, then depth.
func TopConcerns(records []Record, n int) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		da, db := depthOf(a.Later), depthOf(b.Later)
		if da != db {
			return da > db
		}
		return a.ID() < b.ID()
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func depthOf(a models.Anomaly) float64 {
	if a.DepthPct == nil {
		return -1
	}
	return *a.DepthPct
}

func rate(earlier, later *float64, years float64) *float64 {
	if earlier == nil || later == nil || years <= 0 {
		return nil
	}
	r := (*later - *earlier) / years
	return &r
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
