package search

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/models"
)

const (
	clockEpsilon = 1e-9
	radiusSlack  = 1e-6
)

// ClockDelta is the circular distance between two clock positions in hours.
func ClockDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 12)
	return math.Min(d, 12-d)
}

// Embed places an anomaly at (corrected distance, cos θ, sin θ) with
// θ = hours·2π/12. Unknown clock positions sit on the axis.
func Embed(a models.Anomaly) Point {
	if a.ClockHours == nil {
		return Point{a.CorrectedDistance, 0, 0}
	}
	theta := *a.ClockHours * 2 * math.Pi / 12
	return Point{a.CorrectedDistance, math.Cos(theta), math.Sin(theta)}
}

// Query bounds a candidate search.
type Query struct {
	DistanceToleranceFt float64
	ClockToleranceHours float64
	MaxCandidates       int
}

// Candidate is an indexed anomaly near the query anomaly.
type Candidate struct {
	Index         int
	DistanceDelta float64
	ClockDelta    *float64
	Metric        float64
}

// Index finds later-run anomalies near an earlier-run anomaly.
type Index struct {
	anomalies []models.Anomaly
	tree      *Tree
	treeIdx   []int
	unclocked []int
}

// NewIndex indexes anomalies by corrected distance and clock position.
func NewIndex(anomalies []models.Anomaly) *Index {
	ix := &Index{anomalies: anomalies}

	points := make([]Point, 0, len(anomalies))
	for i, a := range anomalies {
		if a.ClockHours == nil {
			ix.unclocked = append(ix.unclocked, i)
			continue
		}
		ix.treeIdx = append(ix.treeIdx, i)
		points = append(points, Embed(a))
	}
	ix.tree = NewTree(points)
	sort.SliceStable(ix.unclocked, func(a, b int) bool {
		return anomalies[ix.unclocked[a]].CorrectedDistance < anomalies[ix.unclocked[b]].CorrectedDistance
	})
	return ix
}

// Len is the number of indexed anomalies.
func (ix *Index) Len() int {
	return len(ix.anomalies)
}

// Near returns the anomalies within both tolerances of a, closest first by
// the normalized distance/clock metric and truncated to MaxCandidates.
// When either clock is unknown the clock bound is not applied and the
// clock term counts as a full tolerance.
func (ix *Index) Near(a models.Anomaly, q Query) []Candidate {
	// Indexed points sit on the unit circle in (cos, sin), so the chord
	// between clock positions bounds the radius; an unknown query clock sits
	// on the axis at unit distance from every indexed point.
	chord := 1.0
	if a.ClockHours != nil {
		chord = 2 * math.Sin(math.Min(q.ClockToleranceHours, 6)*math.Pi/12)
	}
	radius := math.Hypot(q.DistanceToleranceFt, chord) + radiusSlack

	var out []Candidate
	for _, k := range ix.tree.Within(Embed(a), radius) {
		if c, ok := ix.candidate(a, ix.treeIdx[k], q); ok {
			out = append(out, c)
		}
	}

	lo, hi := a.CorrectedDistance-q.DistanceToleranceFt, a.CorrectedDistance+q.DistanceToleranceFt
	start := sort.Search(len(ix.unclocked), func(k int) bool {
		return ix.anomalies[ix.unclocked[k]].CorrectedDistance >= lo
	})
	for k := start; k < len(ix.unclocked); k++ {
		i := ix.unclocked[k]
		if ix.anomalies[i].CorrectedDistance > hi {
			break
		}
		if c, ok := ix.candidate(a, i, q); ok {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(x, y int) bool {
		if out[x].Metric != out[y].Metric {
			return out[x].Metric < out[y].Metric
		}
		return out[x].Index < out[y].Index
	})
	if q.MaxCandidates > 0 && len(out) > q.MaxCandidates {
		out = out[:q.MaxCandidates]
	}
	return out
}

func (ix *Index) candidate(a models.Anomaly, i int, q Query) (Candidate, bool) {
	b := ix.anomalies[i]
	dd := b.CorrectedDistance - a.CorrectedDistance
	if math.Abs(dd) > q.DistanceToleranceFt {
		return Candidate{}, false
	}

	c := Candidate{Index: i, DistanceDelta: dd}
	clockTerm := 1.0
	if a.ClockHours != nil && b.ClockHours != nil {
		cd := ClockDelta(*a.ClockHours, *b.ClockHours)
		if cd > q.ClockToleranceHours+clockEpsilon {
			return Candidate{}, false
		}
		c.ClockDelta = &cd
		clockTerm = cd / q.ClockToleranceHours
	}
	distTerm := dd / q.DistanceToleranceFt
	c.Metric = math.Sqrt(distTerm*distTerm + clockTerm*clockTerm)
	return c, true
}
