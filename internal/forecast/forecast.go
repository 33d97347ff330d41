package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// ErrTargetYear is returned when the requested year does not follow the
// latest inspection.
var ErrTargetYear = errors.New("target year must be after the latest inspection")

// Rate sources.
const (
	SourceChainTrend = "chain_trend"
	SourcePair       = "pair"
)

// Prediction is the extrapolated state of one anomaly.
type Prediction struct {
	AnomalyID      string    `json:"anomaly_id"`
	DistanceFt     float64   `json:"distance_ft"`
	ClockHours     *float64  `json:"clock_hours,omitempty"`
	CurrentDepth   float64   `json:"current_depth_pct"`
	Rate           float64   `json:"rate_pct_yr"`
	RateSource     string    `json:"rate_source"`
	PredictedDepth float64   `json:"predicted_depth_pct"`
	RiskCategory   string    `json:"risk_category"`
	YearsToRepair  *float64  `json:"years_to_repair,omitempty"`
	Crossed        []float64 `json:"crossed_thresholds,omitempty"`
}

// Bin is one depth histogram bucket.
type Bin struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Crossing counts anomalies at or beyond a threshold now and at the target.
type Crossing struct {
	Threshold    float64 `json:"threshold_pct"`
	Current      int     `json:"current"`
	Predicted    int     `json:"predicted"`
	NewlyCrossed int     `json:"newly_crossed"`
}

// Summary aggregates a forecast.
type Summary struct {
	Count              int     `json:"count"`
	Skipped            int     `json:"skipped"`
	MeanPredictedDepth float64 `json:"mean_predicted_depth_pct"`
	MaxPredictedDepth  float64 `json:"max_predicted_depth_pct"`
	FromChainTrend     int     `json:"from_chain_trend"`
}

// Forecast is a virtual inspection of the line in TargetYear.
type Forecast struct {
	BaseYear         int            `json:"base_year"`
	TargetYear       int            `json:"target_year"`
	Predictions      []Prediction   `json:"predictions"`
	Top              []Prediction   `json:"top_concerns"`
	RiskDistribution map[string]int `json:"risk_distribution"`
	DepthHistogram   []Bin          `json:"depth_histogram"`
	Crossings        []Crossing     `json:"crossings"`
	Summary          Summary        `json:"summary"`
}

// Predict extrapolates each matched anomaly of the latest pair to target.
// A chain trend slope is preferred over the pair rate; anomalies without a
// depth or with a negative rate are skipped.
func Predict(g *growth.Result, chains *chain.Result, target int, p params.Params) (*Forecast, error) {
	base := g.Pair.Later
	if target <= base {
		return nil, fmt.Errorf("%w: %d <= %d", ErrTargetYear, target, base)
	}
	years := float64(target - base)

	var byLatest map[string]*chain.Chain
	if chains != nil {
		byLatest = chains.ByLatestID()
	}

	f := &Forecast{
		BaseYear:         base,
		TargetYear:       target,
		Predictions:      make([]Prediction, 0, len(g.Records)),
		RiskDistribution: map[string]int{growth.RiskCritical: 0, growth.RiskHigh: 0, growth.RiskMedium: 0, growth.RiskLow: 0},
	}

	for _, r := range g.Records {
		if r.Later.DepthPct == nil {
			f.Summary.Skipped++
			continue
		}
		pr := Prediction{
			AnomalyID:    r.Later.ID,
			DistanceFt:   r.Later.CorrectedDistance,
			ClockHours:   r.Later.ClockHours,
			CurrentDepth: *r.Later.DepthPct,
		}

		switch c := byLatest[r.Later.ID]; {
		case c != nil && c.Trend != nil:
			pr.Rate, pr.RateSource = c.Trend.Slope, SourceChainTrend
		case r.GrowthRate != nil:
			pr.Rate, pr.RateSource = *r.GrowthRate, SourcePair
		default:
			f.Summary.Skipped++
			continue
		}
		if pr.Rate < 0 {
			f.Summary.Skipped++
			continue
		}

		pr.PredictedDepth = math.Max(0, math.Min(100, pr.CurrentDepth+pr.Rate*years))
		pr.RiskCategory = riskFor(pr.PredictedDepth, p.Forecast)
		pr.YearsToRepair = growth.RemainingLife(pr.CurrentDepth, pr.Rate, p.Growth.RepairThreshold)
		for _, th := range p.Forecast.Thresholds {
			if pr.CurrentDepth < th && pr.PredictedDepth >= th {
				pr.Crossed = append(pr.Crossed, th)
			}
		}
		if pr.RateSource == SourceChainTrend {
			f.Summary.FromChainTrend++
		}
		f.Predictions = append(f.Predictions, pr)
	}

	sort.SliceStable(f.Predictions, func(i, j int) bool {
		a, b := f.Predictions[i], f.Predictions[j]
		if a.PredictedDepth != b.PredictedDepth {
			return a.PredictedDepth > b.PredictedDepth
		}
		return a.AnomalyID < b.AnomalyID
	})

	f.aggregate(p.Forecast)
	return f, nil
}

func riskFor(depth float64, p params.Forecast) string {
	switch {
	case depth >= p.CriticalDepth:
		return growth.RiskCritical
	case depth >= p.HighDepth:
		return growth.RiskHigh
	case depth >= p.MediumDepth:
		return growth.RiskMedium
	default:
		return growth.RiskLow
	}
}

func (f *Forecast) aggregate(p params.Forecast) {
	f.DepthHistogram = []Bin{{Label: "0-20"}, {Label: "20-40"}, {Label: "40-60"}, {Label: "60-80"}, {Label: "80-100"}}
	f.Crossings = make([]Crossing, len(p.Thresholds))
	for i, th := range p.Thresholds {
		f.Crossings[i].Threshold = th
	}

	var sum float64
	for _, pr := range f.Predictions {
		f.RiskDistribution[pr.RiskCategory]++
		sum += pr.PredictedDepth
		f.Summary.MaxPredictedDepth = math.Max(f.Summary.MaxPredictedDepth, pr.PredictedDepth)

		bin := min(int(pr.PredictedDepth/20), len(f.DepthHistogram)-1)
		f.DepthHistogram[bin].Count++

		for i, th := range p.Thresholds {
			if pr.CurrentDepth >= th {
				f.Crossings[i].Current++
			}
			if pr.PredictedDepth >= th {
				f.Crossings[i].Predicted++
			}
			if pr.CurrentDepth < th && pr.PredictedDepth >= th {
				f.Crossings[i].NewlyCrossed++
			}
		}
	}

	f.Summary.Count = len(f.Predictions)
	if f.Summary.Count > 0 {
		f.Summary.MeanPredictedDepth = sum / float64(f.Summary.Count)
	}
	n := min(p.TopConcerns, len(f.Predictions))
	f.Top = f.Predictions[:n]
}
