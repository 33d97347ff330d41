package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/corrosight/internal/models"
)

func anomalyAt(id string, dist float64, clock *float64) models.Anomaly {
	return models.Anomaly{ID: id, CorrectedDistance: dist, ClockHours: clock, EventType: models.EventMetalLoss}
}

func TestClockDeltaWrapsAround(t *testing.T) {
	assert.InDelta(t, 1.0, ClockDelta(11.5, 0.5), 1e-9)
	assert.InDelta(t, 6.0, ClockDelta(0, 6), 1e-9)
	assert.InDelta(t, 2.0, ClockDelta(3, 1), 1e-9)
}

func TestTreeWithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([]Point, 500)
	for i := range points {
		theta := rng.Float64() * 2 * math.Pi
		points[i] = Point{rng.Float64() * 1000, math.Cos(theta), math.Sin(theta)}
	}
	tree := NewTree(points)
	require.Equal(t, 500, tree.Len())

	for q := 0; q < 50; q++ {
		theta := rng.Float64() * 2 * math.Pi
		c := Point{rng.Float64() * 1000, math.Cos(theta), math.Sin(theta)}
		r := 5 + rng.Float64()*20

		var want []int
		for i, p := range points {
			dx, dy, dz := p[0]-c[0], p[1]-c[1], p[2]-c[2]
			if math.Sqrt(dx*dx+dy*dy+dz*dz) <= r {
				want = append(want, i)
			}
		}
		got := tree.Within(c, r)
		if want == nil {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got)
	}
}

func TestTreeEmpty(t *testing.T) {
	tree := NewTree(nil)
	assert.Zero(t, tree.Len())
	assert.Empty(t, tree.Within(Point{}, 100))
}

func TestNearRespectsTolerances(t *testing.T) {
	later := []models.Anomaly{
		anomalyAt("near", 101, models.Float(3.5)),
		anomalyAt("far-distance", 104.5, models.Float(3)),
		anomalyAt("far-clock", 100, models.Float(5)),
		anomalyAt("wrap", 99, models.Float(11.8)),
		anomalyAt("no-clock", 102, nil),
		anomalyAt("exact", 100, models.Float(3)),
	}
	ix := NewIndex(later)
	q := Query{DistanceToleranceFt: 3, ClockToleranceHours: 1, MaxCandidates: 10}

	got := ix.Near(anomalyAt("q", 100, models.Float(3)), q)
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = later[c.Index].ID
	}
	assert.Equal(t, []string{"exact", "near", "no-clock"}, ids)

	wrap := ix.Near(anomalyAt("q", 100, models.Float(0.3)), q)
	require.NotEmpty(t, wrap)
	assert.Equal(t, "wrap", later[wrap[0].Index].ID)
}

func TestNearUnknownClockUsesDistanceOnly(t *testing.T) {
	later := []models.Anomaly{
		anomalyAt("a", 100, models.Float(6)),
		anomalyAt("b", 101, models.Float(12 - 0.1)),
		anomalyAt("c", 110, models.Float(6)),
	}
	got := NewIndex(later).Near(anomalyAt("q", 100, nil), Query{DistanceToleranceFt: 3, ClockToleranceHours: 1})
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ClockDelta)
	assert.Equal(t, 0, got[0].Index)
}

func TestNearTruncates(t *testing.T) {
	later := make([]models.Anomaly, 20)
	for i := range later {
		later[i] = anomalyAt("x", 100+float64(i)*0.1, models.Float(6))
	}
	got := NewIndex(later).Near(anomalyAt("q", 100, models.Float(6)), Query{DistanceToleranceFt: 3, ClockToleranceHours: 1, MaxCandidates: 4})
	require.Len(t, got, 4)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
	}
}

func TestNearEmptyIndex(t *testing.T) {
	got := NewIndex(nil).Near(anomalyAt("q", 1, nil), Query{DistanceToleranceFt: 3, ClockToleranceHours: 1})
	assert.Empty(t, got)
}
