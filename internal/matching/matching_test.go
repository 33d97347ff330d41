package matching

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

func anomaly(id string, year int, dist, clock, depth float64) models.Anomaly {
	return models.Anomaly{
		ID:                id,
		RunYear:           year,
		Distance:          dist,
		CorrectedDistance: dist,
		ClockHours:        models.Float(clock),
		DepthPct:          models.Float(depth),
		LengthIn:          models.Float(2),
		WidthIn:           models.Float(2),
		EventType:         models.EventMetalLoss,
	}
}

func TestScoreIdentical(t *testing.T) {
	a := anomaly("a", 2015, 100, 3, 20)
	s := Score(a, a, params.Default().Matching)
	assert.InDelta(t, 1.0, s.Score, 1e-9)
	assert.InDelta(t, 1.0, *s.Depth, 1e-9)
}

func TestScorePenalizesDepthDecrease(t *testing.T) {
	p := params.Default().Matching
	a := anomaly("a", 2015, 100, 3, 30)
	grew := anomaly("b", 2022, 100, 3, 35)
	shrank := anomaly("c", 2022, 100, 3, 25)

	sg, ss := Score(a, grew, p), Score(a, shrank, p)
	assert.InDelta(t, 1-5.0/30, *sg.Depth, 1e-9)
	assert.InDelta(t, 0.5, *ss.Depth, 1e-9)
	assert.Less(t, *ss.Depth, *sg.Depth)
	assert.Less(t, ss.Score, sg.Score)
}

func TestScoreRenormalizesMissingTerms(t *testing.T) {
	p := params.Default().Matching
	a := anomaly("a", 2015, 100, 3, 30)
	b := anomaly("b", 2022, 101.5, 3, 30)
	b.LengthIn, b.WidthIn, b.DepthPct = nil, nil, nil

	s := Score(a, b, p)
	assert.Nil(t, s.Dimensions)
	assert.Nil(t, s.Depth)
	// distance 0.5, clock 1, type 1 over weights 0.35+0.25+0.10
	assert.InDelta(t, (0.35*0.5+0.25+0.10)/0.70, s.Score, 1e-9)
}

func TestScoreTypeCompatibility(t *testing.T) {
	p := params.Default().Matching
	a := anomaly("a", 2015, 100, 3, 30)
	b := a
	b.EventType = models.EventCluster
	assert.InDelta(t, 0.7, Score(a, b, p).Type, 1e-9)
	b.EventType = models.EventDent
	assert.InDelta(t, 0.0, Score(a, b, p).Type, 1e-9)
}

func TestLabelBoundaries(t *testing.T) {
	p := params.Default().Matching
	assert.Equal(t, LabelHigh, Label(0.85, p))
	assert.Equal(t, LabelMedium, Label(0.84999, p))
	assert.Equal(t, LabelMedium, Label(0.60, p))
	assert.Equal(t, LabelLow, Label(0.5999, p))
}

func TestConfidenceFactors(t *testing.T) {
	w := params.Default().Matching.Confidence
	assert.InDelta(t, 1.0, Confidence(1, 1, 1, 1, w), 1e-9)
	assert.InDelta(t, 0.0, Confidence(0, 0, 0, 0, w), 1e-9)

	assert.Equal(t, 1.0, Uniqueness(0.9, -1, 0.2))
	assert.InDelta(t, 0.5, Uniqueness(0.9, 0.8, 0.2), 1e-9)
	assert.Equal(t, 0.0, Uniqueness(0.7, 0.8, 0.2))

	assert.Equal(t, 0.5, GrowthPlausibility(nil, 5))
	assert.Equal(t, 1.0, GrowthPlausibility(models.Float(2), 5))
	assert.InDelta(t, 0.3, GrowthPlausibility(models.Float(-2), 5), 1e-9)
	assert.InDelta(t, 0.8, GrowthPlausibility(models.Float(7), 5), 1e-9)
	assert.InDelta(t, 0.2, GrowthPlausibility(models.Float(40), 5), 1e-9)

	a := models.Anomaly{JointNumber: models.Int(10)}
	b := models.Anomaly{JointNumber: models.Int(10)}
	c := models.Anomaly{JointNumber: models.Int(20)}
	assert.Equal(t, 1.0, JointAgreement(a, b))
	assert.Equal(t, 0.6, JointAgreement(a, c))
	assert.Equal(t, 0.5, JointAgreement(a, models.Anomaly{}))
}

func bruteForceMax(w [][]float64) float64 {
	best := 0.0
	used := make([]bool, len(w[0]))
	var rec func(i int, acc float64)
	rec = func(i int, acc float64) {
		if i == len(w) {
			best = math.Max(best, acc)
			return
		}
		rec(i+1, acc)
		for j := range w[i] {
			if !used[j] && w[i][j] > 0 {
				used[j] = true
				rec(i+1, acc+w[i][j])
				used[j] = false
			}
		}
	}
	rec(0, 0)
	return best
}

func TestSolveMaxMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 60; trial++ {
		rows, cols := 1+rng.Intn(6), 1+rng.Intn(6)
		w := make([][]float64, rows)
		for i := range w {
			w[i] = make([]float64, cols)
			for j := range w[i] {
				if rng.Float64() < 0.6 {
					w[i][j] = 0.4 + 0.6*rng.Float64()
				}
			}
		}
		w[0][0] = 0.5

		assign, err := SolveMax(w)
		require.NoError(t, err)

		seen := map[int]bool{}
		total := 0.0
		for i, j := range assign {
			if j < 0 {
				continue
			}
			assert.False(t, seen[j], "column assigned twice")
			seen[j] = true
			assert.Greater(t, w[i][j], 0.0)
			total += w[i][j]
		}
		assert.InDelta(t, bruteForceMax(w), total, 1e-9, "trial %d", trial)
	}
}

func TestSolveMaxDegenerate(t *testing.T) {
	_, err := SolveMax(nil)
	assert.ErrorIs(t, err, ErrAssignmentInfeasible)

	_, err = SolveMax([][]float64{{0, 0}, {0, 0}})
	assert.ErrorIs(t, err, ErrAssignmentInfeasible)

	_, err = SolveMax([][]float64{{math.NaN()}})
	assert.ErrorIs(t, err, ErrAssignmentInfeasible)
}

func TestRunPrefersGlobalOptimum(t *testing.T) {
	// Row-by-row nearest would give e1 l1 and leave e2 a poor partner.
	earlier := []models.Anomaly{
		anomaly("e1", 2015, 100.0, 3, 20),
		anomaly("e2", 2015, 101.5, 3, 20),
	}
	later := []models.Anomaly{
		anomaly("l1", 2022, 100.8, 3, 22),
		anomaly("l2", 2022, 98.6, 3, 22),
	}
	res, err := Run(context.Background(), models.RunPair{Earlier: 2015, Later: 2022}, earlier, later, nil, params.Default())
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)

	pairs := map[string]string{}
	for _, m := range res.Matches {
		pairs[m.Earlier.ID] = m.Later.ID
	}
	assert.Equal(t, "l2", pairs["e1"])
	assert.Equal(t, "l1", pairs["e2"])
}

func TestRunOneToOneAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var earlier, later []models.Anomaly
	for i := 0; i < 300; i++ {
		d := rng.Float64() * 5000
		clock := rng.Float64() * 12
		depth := 10 + rng.Float64()*40
		earlier = append(earlier, anomaly(fmt.Sprintf("e%d", i), 2015, d, clock, depth))
		if rng.Float64() < 0.8 {
			later = append(later, anomaly(fmt.Sprintf("l%d", i), 2022, d+rng.NormFloat64()*0.5, math.Mod(clock+rng.NormFloat64()*0.2+12, 12), depth+rng.Float64()*5))
		}
	}

	p := params.Default()
	p.Matching.MaxProblemSize = 8
	p.Matching.WindowFt = 100
	res, err := Run(context.Background(), models.RunPair{Earlier: 2015, Later: 2022}, earlier, later, nil, p)
	require.NoError(t, err)

	seenE, seenL := map[string]bool{}, map[string]bool{}
	for _, m := range res.Matches {
		assert.False(t, seenE[m.Earlier.ID])
		assert.False(t, seenL[m.Later.ID])
		seenE[m.Earlier.ID], seenL[m.Later.ID] = true, true
		assert.GreaterOrEqual(t, m.Confidence, 0.0)
		assert.LessOrEqual(t, m.Confidence, 1.0)
		assert.GreaterOrEqual(t, m.Similarity.Score, p.Matching.MinSimilarity)
	}
	assert.Equal(t, len(earlier), len(res.Matches)+len(res.Missing)+len(res.Repaired))
	assert.Equal(t, len(later), len(res.Matches)+len(res.New))
	assert.Greater(t, res.Stats.MatchRate, 60.0)
}

func TestRunClassifiesRepairedAndExcluded(t *testing.T) {
	earlier := []models.Anomaly{
		anomaly("keep", 2015, 100, 3, 20),
		anomaly("sleeved", 2015, 500, 6, 45),
		anomaly("gone", 2015, 900, 6, 12),
	}
	valve := anomaly("valve", 2015, 300, 0, 0)
	valve.EventType = "Valve"
	earlier = append(earlier, valve)
	later := []models.Anomaly{anomaly("keep-2", 2022, 100.5, 3, 24), anomaly("fresh", 2022, 1500, 9, 10)}
	repairs := []models.RepairZone{{Start: 480, End: 520, Kind: "sleeve"}}

	res, err := Run(context.Background(), models.RunPair{Earlier: 2015, Later: 2022}, earlier, later, repairs, params.Default())
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	require.Len(t, res.Repaired, 1)
	require.Len(t, res.Missing, 1)
	require.Len(t, res.New, 1)
	assert.Equal(t, "sleeved", res.Repaired[0].ID)
	assert.Equal(t, "gone", res.Missing[0].ID)
	assert.Equal(t, "fresh", res.New[0].ID)
	assert.Equal(t, 1, res.Stats.Excluded)
	assert.Equal(t, 1.0, res.Matches[0].Uniqueness)
}

func TestPartitionWindowsOverlap(t *testing.T) {
	p := params.Default().Matching
	p.MaxProblemSize = 2
	p.WindowFt = 10
	p.WindowOverlapFt = 3

	rowPos := []float64{0, 2, 9, 11, 19}
	var edges []edge
	// One chain-connected component.
	for i := range rowPos {
		edges = append(edges, edge{row: i, col: i, sim: Similarity{Score: 0.9}})
		if i+1 < len(rowPos) {
			edges = append(edges, edge{row: i + 1, col: i, sim: Similarity{Score: 0.5}})
		}
	}
	problems := partition(edges, rowPos, len(rowPos), p)
	require.Len(t, problems, 2)
	assert.True(t, problems[0].owned[2])
	assert.False(t, problems[1].owned[2])
	assert.True(t, problems[1].owned[3])

	chosen, err := assign(context.Background(), problems, 2)
	require.NoError(t, err)
	assert.Len(t, chosen, 5)
	for _, e := range chosen {
		assert.Equal(t, e.row, e.col)
	}
}

func TestAssignOwningWindowDecidesRow(t *testing.T) {
	p := params.Default().Matching
	p.MaxProblemSize = 2
	p.WindowFt = 10
	p.WindowOverlapFt = 3

	// Row 1 sits in the first window's margin but is owned by the second,
	// which also sees row 2 competing for column 1.
	rowPos := []float64{0, 11, 14}
	edges := []edge{
		{row: 0, col: 0, sim: Similarity{Score: 0.5}},
		{row: 0, col: 1, sim: Similarity{Score: 0.45}},
		{row: 1, col: 1, sim: Similarity{Score: 0.9}},
		{row: 1, col: 2, sim: Similarity{Score: 0.6}},
		{row: 2, col: 1, sim: Similarity{Score: 0.85}},
	}
	problems := partition(edges, rowPos, 3, p)
	require.Len(t, problems, 2)
	assert.False(t, problems[0].owned[1])
	assert.True(t, problems[1].owned[1])

	chosen, err := assign(context.Background(), problems, 2)
	require.NoError(t, err)

	got := make(map[int]int)
	var total float64
	for _, e := range chosen {
		got[e.row] = e.col
		total += e.sim.Score
	}
	assert.Equal(t, map[int]int{0: 0, 1: 2, 2: 1}, got)

	w := [][]float64{{0.5, 0.45, 0}, {0, 0.9, 0.6}, {0, 0.85, 0}}
	best, err := SolveMax(w)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, best)
	assert.InDelta(t, 1.95, total, 1e-9)
}

func TestAssignResolvesColumnConflictBetweenOwners(t *testing.T) {
	p := params.Default().Matching
	p.MaxProblemSize = 1
	p.WindowFt = 10
	p.WindowOverlapFt = 0

	// Each window owns one row and both want column 0; the loser still has
	// column 1 available.
	rowPos := []float64{5, 15}
	edges := []edge{
		{row: 0, col: 0, sim: Similarity{Score: 0.9}},
		{row: 1, col: 0, sim: Similarity{Score: 0.8}},
		{row: 1, col: 1, sim: Similarity{Score: 0.5}},
	}
	problems := partition(edges, rowPos, 2, p)
	require.Len(t, problems, 2)

	chosen, err := assign(context.Background(), problems, 2)
	require.NoError(t, err)

	got := make(map[int]int)
	for _, e := range chosen {
		got[e.row] = e.col
	}
	assert.Equal(t, map[int]int{0: 0, 1: 1}, got)
}
