package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/chain"
	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

func records(t *testing.T) *growth.Result {
	t.Helper()
	pair := models.RunPair{Earlier: 2015, Later: 2022}
	mk := func(id string, before, after float64) matching.Match {
		return matching.Match{
			Earlier: models.Anomaly{ID: id + "-15", RunYear: 2015, DepthPct: models.Float(before)},
			Later:   models.Anomaly{ID: id, RunYear: 2022, CorrectedDistance: 10, DepthPct: models.Float(after)},
		}
	}
	mr := &matching.Result{Pair: pair, Matches: []matching.Match{
		mk("steady", 30, 44),
		mk("shrinking", 40, 33),
		mk("chained", 20, 27),
		{Earlier: models.Anomaly{ID: "blind-15"}, Later: models.Anomaly{ID: "blind"}},
	}}
	return growth.Annotate(mr, params.Default().Growth)
}

func TestPredict(t *testing.T) {
	chains := &chain.Result{Chains: []chain.Chain{{
		Observations: [3]chain.Observation{{AnomalyID: "chained-07"}, {AnomalyID: "chained-15"}, {AnomalyID: "chained"}},
		Trend:        &chain.Trend{Slope: 3},
	}}}

	f, err := Predict(records(t), chains, 2030, params.Default())
	require.NoError(t, err)
	assert.Equal(t, 2022, f.BaseYear)
	assert.Equal(t, 2, f.Summary.Count)
	assert.Equal(t, 2, f.Summary.Skipped)
	assert.Equal(t, 1, f.Summary.FromChainTrend)

	require.Len(t, f.Predictions, 2)
	steady := f.Predictions[0]
	assert.Equal(t, "steady", steady.AnomalyID)
	assert.InDelta(t, 60, steady.PredictedDepth, 1e-9)
	assert.Equal(t, growth.RiskHigh, steady.RiskCategory)
	assert.Equal(t, []float64{50, 60}, steady.Crossed)
	assert.InDelta(t, 18, *steady.YearsToRepair, 1e-9)

	chained := f.Predictions[1]
	assert.Equal(t, SourceChainTrend, chained.RateSource)
	assert.InDelta(t, 51, chained.PredictedDepth, 1e-9)

	assert.Equal(t, 2, f.Crossings[0].NewlyCrossed)
	assert.Equal(t, 1, f.Crossings[1].Predicted)
	assert.Equal(t, 0, f.Crossings[3].Predicted)
	assert.Equal(t, 2, f.DepthHistogram[2].Count+f.DepthHistogram[3].Count)
	assert.Equal(t, 2, f.RiskDistribution[growth.RiskHigh])
	assert.Len(t, f.Top, 2)
}

func TestPredictClampsAndRejectsPastYears(t *testing.T) {
	_, err := Predict(records(t), nil, 2022, params.Default())
	assert.ErrorIs(t, err, ErrTargetYear)

	f, err := Predict(records(t), nil, 2200, params.Default())
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.Predictions[0].PredictedDepth)
	assert.Equal(t, 2, f.DepthHistogram[4].Count)
}

func TestRiskBandsFromParams(t *testing.T) {
	p := params.Default().Forecast
	assert.Equal(t, growth.RiskCritical, riskFor(70, p))
	assert.Equal(t, growth.RiskHigh, riskFor(55, p))
	assert.Equal(t, growth.RiskMedium, riskFor(30, p))
	assert.Equal(t, growth.RiskLow, riskFor(29.9, p))

	p.CriticalDepth, p.HighDepth, p.MediumDepth = 60, 40, 20
	assert.Equal(t, growth.RiskCritical, riskFor(65, p))
	assert.Equal(t, growth.RiskMedium, riskFor(25, p))
}
