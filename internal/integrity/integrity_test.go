package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

func subject(id string, dist, depth float64, rate *float64) Subject {
	return Subject{
		Anomaly:    models.Anomaly{ID: id, RunYear: 2022, CorrectedDistance: dist, Distance: dist, DepthPct: models.Float(depth), EventType: models.EventMetalLoss},
		GrowthRate: rate,
		Matched:    rate != nil,
	}
}

func TestInteractionTransitivity(t *testing.T) {
	p := params.Default().Integrity
	wt := 0.3
	ft := func(k float64) float64 { return k * wt / 12 }

	subjects := []Subject{
		subject("a", ft(0), 20, nil),
		subject("b", ft(2), 20, nil),
		subject("c", ft(5), 20, nil),
		subject("d", ft(13), 20, nil),
	}
	for i := range subjects {
		subjects[i].Anomaly.WallThicknessIn = models.Float(wt)
	}

	groups := interactingGroups(subjects, p)
	require.Len(t, groups, 2)
	require.Len(t, groups[0], 3)
	assert.Equal(t, "d", groups[1][0].Anomaly.ID)

	clusters := Interactions(subjects, p)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a", "b", "c"}, clusters[0].Members)
	assert.InDelta(t, ft(5)*12, clusters[0].EffectiveLengthIn, 1e-9)
	assert.Equal(t, SeverityMedium, clusters[0].Severity)
}

func TestInteractionUsesEdgeGapAndDefaultWT(t *testing.T) {
	p := params.Default().Integrity
	// 0.3in default WT gives a 0.15ft limit.
	a := subject("a", 10, 65, nil)
	a.Anomaly.LengthIn = models.Float(12)
	b := subject("b", 11.1, 30, models.Float(0.5))
	c := subject("c", 11.4, 30, nil)

	clusters := Interactions([]Subject{c, a, b}, p)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a", "b"}, clusters[0].Members)
	assert.Equal(t, SeverityHigh, clusters[0].Severity)
	assert.InDelta(t, 0.5, *clusters[0].MaxGrowth, 1e-9)
}

func TestDigListDepthSeventyIsImmediate(t *testing.T) {
	p := params.Default()
	list := DigList([]Subject{subject("x", 100, 70, models.Float(0))}, p)
	require.Len(t, list, 1)
	assert.Equal(t, DigImmediate, list[0].Category)
	assert.Equal(t, 1, list[0].Rank)
}

func TestDigListCategories(t *testing.T) {
	p := params.Default()
	subjects := []Subject{
		subject("scheduled", 10, 55, models.Float(0)),
		subject("monitor", 20, 15, models.Float(0.4)),
		subject("ignored", 30, 25, models.Float(-0.2)),
		subject("no-history", 40, 10, nil),
		subject("short-life", 50, 45, models.Float(4)),
	}
	subjects[4].RemainingLife = growth.RemainingLife(45, 4, 80)

	list := DigList(subjects, p)
	byID := map[string]DigEntry{}
	for _, e := range list {
		byID[e.AnomalyID] = e
	}
	require.Len(t, list, 3)
	assert.Equal(t, DigScheduled, byID["scheduled"].Category)
	assert.Equal(t, DigMonitor, byID["monitor"].Category)
	assert.Equal(t, DigScheduled, byID["short-life"].Category)

	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i-1].Urgency, list[i].Urgency)
	}
}

func TestUrgencyComponents(t *testing.T) {
	p := params.Default()
	assert.InDelta(t, 100, Urgency(80, models.Float(5), models.Float(0), p), 1e-9)
	assert.InDelta(t, 20, Urgency(40, nil, nil, p), 1e-9)
	assert.InDelta(t, 15, Urgency(0, nil, models.Float(7.5), p), 1e-9)
}

func TestSegments(t *testing.T) {
	p := params.Default()
	subjects := []Subject{
		subject("a", 100, 80, models.Float(3)),
		subject("b", 200, 40, models.Float(3)),
		subject("c", 300, 40, models.Float(3)),
		subject("d", 400, 40, models.Float(3)),
		subject("e", 500, 40, models.Float(3)),
		subject("f", 2500, 10, nil),
	}
	subjects[0].RiskCategory = growth.RiskCritical

	segs := Segments(subjects, p)
	require.Len(t, segs, 2)
	assert.Equal(t, 5, segs[0].Count)
	assert.InDelta(t, 25+35+25+5, segs[0].RiskScore, 1e-9)
	assert.True(t, segs[0].HighRisk)
	assert.Equal(t, 2, segs[1].Index)
	assert.Nil(t, segs[1].AvgGrowth)
	assert.Equal(t, 2000.0, segs[1].StartFt)
	assert.Equal(t, 3000.0, segs[1].EndFt)
	assert.Empty(t, Segments(nil, p))
	assert.NotNil(t, Segments(nil, p))
}

func TestSegmentsFarApartStaySparse(t *testing.T) {
	p := params.Default()
	subjects := []Subject{
		subject("far", 1e12, 30, nil),
		subject("near", 10, 30, nil),
		subject("behind", -1500, 30, nil),
	}

	segs := Segments(subjects, p)
	require.Len(t, segs, 3)
	assert.Equal(t, -2, segs[0].Index)
	assert.Equal(t, 0, segs[1].Index)
	assert.Equal(t, 1e12, segs[2].StartFt)
	for _, s := range segs {
		assert.Equal(t, 1, s.Count)
	}
}

func TestSegmentWeightsFromParams(t *testing.T) {
	p := params.Default()
	p.Integrity.SegmentWeights = params.SegmentWeights{Density: 0, Depth: 100, Growth: 0, Critical: 0}
	p.Integrity.SegmentCountScale = 1

	segs := Segments([]Subject{subject("a", 100, 40, models.Float(3))}, p)
	require.Len(t, segs, 1)
	assert.InDelta(t, 50, segs[0].RiskScore, 1e-9)
	assert.Zero(t, segs[0].DensityComponent)
}

func TestUrgencyWeightsFromParams(t *testing.T) {
	p := params.Default()
	p.Integrity.UrgencyWeights = params.UrgencyWeights{Depth: 1}
	assert.InDelta(t, 50, Urgency(40, models.Float(5), models.Float(0), p), 1e-9)
}

func TestClusterSeverityFromParams(t *testing.T) {
	p := params.Default().Integrity
	a, b := subject("a", 10, 30, nil), subject("b", 10.05, 30, nil)

	clusters := Interactions([]Subject{a, b}, p)
	require.Len(t, clusters, 1)
	assert.Equal(t, SeverityLow, clusters[0].Severity)

	p.MediumClusterMembers = 2
	p.HighClusterMembers = 2
	clusters = Interactions([]Subject{a, b}, p)
	require.Len(t, clusters, 1)
	assert.Equal(t, SeverityHigh, clusters[0].Severity)
}

func TestQuadrantAndPopulation(t *testing.T) {
	assert.Equal(t, QuadrantTop, Quadrant(models.Float(11)))
	assert.Equal(t, QuadrantTop, Quadrant(models.Float(1)))
	assert.Equal(t, QuadrantRight, Quadrant(models.Float(3)))
	assert.Equal(t, QuadrantBottom, Quadrant(models.Float(6)))
	assert.Equal(t, QuadrantLeft, Quadrant(models.Float(9)))
	assert.Equal(t, QuadrantUnknown, Quadrant(nil))

	s1 := subject("a", 1, 10, models.Float(4))
	s1.Anomaly.ClockHours = models.Float(6)
	s1.Anomaly.Surface = models.SurfaceInternal
	s2 := subject("b", 2, 50, models.Float(2))
	s2.Anomaly.ClockHours = models.Float(6.5)
	s2.Anomaly.Surface = models.SurfaceExternal
	s3 := subject("c", 3, 30, models.Float(-1))
	s4 := subject("d", 4, 30, nil)

	pop := PopulationStats([]Subject{s1, s2, s3, s4}, params.Default().Integrity)
	assert.Equal(t, 2, pop.Total)
	require.Len(t, pop.ByQuadrant, 1)
	g := pop.ByQuadrant[0]
	assert.Equal(t, QuadrantBottom, g.Key)
	assert.InDelta(t, 3, g.MeanGrowth, 1e-9)
	assert.InDelta(t, 50, g.PctHighGrowth, 1e-9)
	assert.InDelta(t, 30, g.MeanDepth, 1e-9)
	assert.Equal(t, 1, pop.CrossTab[QuadrantBottom]["Internal"])
	assert.Len(t, pop.ByDepthBand, 2)
}

func TestAnalyze(t *testing.T) {
	pair := models.RunPair{Earlier: 2015, Later: 2022}
	mr := &matching.Result{Pair: pair, Matches: []matching.Match{{
		Earlier: models.Anomaly{ID: "e", RunYear: 2015, DepthPct: models.Float(50)},
		Later:   models.Anomaly{ID: "l", RunYear: 2022, CorrectedDistance: 10, DepthPct: models.Float(72)},
	}}}
	g := growth.Annotate(mr, params.Default().Growth)
	fresh := []models.Anomaly{{ID: "n", RunYear: 2022, CorrectedDistance: 1500, DepthPct: models.Float(12)}}

	r := Analyze(g, fresh, params.Default())
	assert.Equal(t, "2015-2022", r.Summary.Pair)
	assert.Equal(t, 2, r.Summary.Subjects)
	assert.Equal(t, 1, r.Summary.DigCounts[DigImmediate])
	assert.Len(t, r.Segments, 2)
}
