package matching

import (
	"context"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
	"github.com/02loveslollipop/corrosight/internal/search"
)

// Match is a one-to-one correspondence between anomalies of two runs.
type Match struct {
	Earlier        models.Anomaly `json:"earlier"`
	Later          models.Anomaly `json:"later"`
	Similarity     Similarity     `json:"similarity"`
	Uniqueness     float64        `json:"uniqueness"`
	Plausibility   float64        `json:"growth_plausibility"`
	JointAgreement float64        `json:"joint_agreement"`
	Confidence     float64        `json:"confidence"`
	Label          string         `json:"label"`
	Candidates     int            `json:"candidates"`
}

// Stats summarizes one run pair's matching.
type Stats struct {
	EarlierCount   int            `json:"earlier_count"`
	LaterCount     int            `json:"later_count"`
	Excluded       int            `json:"excluded"`
	Edges          int            `json:"edges"`
	Problems       int            `json:"problems"`
	Matched        int            `json:"matched"`
	New            int            `json:"new"`
	Missing        int            `json:"missing"`
	Repaired       int            `json:"repaired"`
	ByLabel        map[string]int `json:"by_label"`
	MeanSimilarity float64        `json:"mean_similarity"`
	MeanConfidence float64        `json:"mean_confidence"`
	MatchRate      float64        `json:"match_rate_pct"`
}

// Result is the matching outcome for one run pair.
type Result struct {
	Pair     models.RunPair   `json:"pair"`
	Matches  []Match          `json:"matches"`
	New      []models.Anomaly `json:"new"`
	Missing  []models.Anomaly `json:"missing"`
	Repaired []models.Anomaly `json:"repaired"`
	Stats    Stats            `json:"stats"`
}

// Run matches earlier-run anomalies (already corrected into the later run's
// frame) against later-run anomalies. Earlier anomalies with no match are
// reported missing, or repaired when they fall inside a later repair zone.
func Run(ctx context.Context, pair models.RunPair, earlier, later []models.Anomaly, repairs []models.RepairZone, prm params.Params) (*Result, error) {
	p := prm.Matching
	res := &Result{
		Pair:  pair,
		Stats: Stats{ByLabel: map[string]int{LabelHigh: 0, LabelMedium: 0, LabelLow: 0}},
	}

	if p.RequireAnomalyTypes {
		var dropped int
		earlier, dropped = anomaliesOnly(earlier)
		res.Stats.Excluded += dropped
		later, dropped = anomaliesOnly(later)
		res.Stats.Excluded += dropped
	}
	res.Stats.EarlierCount, res.Stats.LaterCount = len(earlier), len(later)

	ix := search.NewIndex(later)
	query := search.Query{
		DistanceToleranceFt: p.DistanceToleranceFt,
		ClockToleranceHours: p.ClockToleranceHours,
		MaxCandidates:       p.MaxCandidates,
	}

	rowPos := make([]float64, len(earlier))
	candidateCount := make([]int, len(earlier))
	var edges []edge
	for i, a := range earlier {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowPos[i] = a.CorrectedDistance
		for _, c := range ix.Near(a, query) {
			sim := Score(a, later[c.Index], p)
			if sim.Score < p.MinSimilarity {
				continue
			}
			edges = append(edges, edge{row: i, col: c.Index, sim: sim})
			candidateCount[i]++
		}
	}
	res.Stats.Edges = len(edges)

	problems := partition(edges, rowPos, len(later), p)
	res.Stats.Problems = len(problems)

	chosen, err := assign(ctx, problems, p.WindowParallelism)
	if err != nil {
		return nil, err
	}

	bestRow := make([]runnerUp, len(earlier))
	bestCol := make([]runnerUp, len(later))
	for i := range bestRow {
		bestRow[i] = newRunnerUp()
	}
	for j := range bestCol {
		bestCol[j] = newRunnerUp()
	}
	for _, e := range edges {
		bestRow[e.row].add(e.sim.Score, e.col)
		bestCol[e.col].add(e.sim.Score, e.row)
	}

	matchedEarlier := make([]bool, len(earlier))
	matchedLater := make([]bool, len(later))
	years := pair.Years()

	for _, e := range chosen {
		matchedEarlier[e.row], matchedLater[e.col] = true, true
		a, b := earlier[e.row], later[e.col]

		next := max(bestRow[e.row].other(e.col), bestCol[e.col].other(e.row))
		m := Match{
			Earlier:        a,
			Later:          b,
			Similarity:     e.sim,
			Uniqueness:     Uniqueness(e.sim.Score, next, p.UniquenessScale),
			Plausibility:   GrowthPlausibility(ImpliedRate(a, b, years), prm.Growth.MaxPlausibleRate),
			JointAgreement: JointAgreement(a, b),
			Candidates:     candidateCount[e.row],
		}
		m.Confidence = Confidence(e.sim.Score, m.Uniqueness, m.Plausibility, m.JointAgreement, p.Confidence)
		m.Label = Label(m.Confidence, p)
		res.Matches = append(res.Matches, m)
	}

	for i, a := range earlier {
		if matchedEarlier[i] {
			continue
		}
		if inRepairZone(a.CorrectedDistance, repairs) {
			res.Repaired = append(res.Repaired, a)
		} else {
			res.Missing = append(res.Missing, a)
		}
	}
	for j, b := range later {
		if !matchedLater[j] {
			res.New = append(res.New, b)
		}
	}

	sortResult(res)
	res.Stats.fill(res)
	return res, nil
}

// runnerUp tracks the best and second best edge score touching one node.
type runnerUp struct {
	best, second float64
	bestPeer     int
}

// other returns the best score on this node excluding the edge to peer,
// or -1 when there is none.
func (r runnerUp) other(peer int) float64 {
	if r.bestPeer == peer {
		return r.second
	}
	return r.best
}

func newRunnerUp() runnerUp {
	return runnerUp{best: -1, second: -1, bestPeer: -1}
}

func (r *runnerUp) add(score float64, peer int) {
	switch {
	case score > r.best:
		r.second = r.best
		r.best, r.bestPeer = score, peer
	case score > r.second:
		r.second = score
	}
}

func anomaliesOnly(in []models.Anomaly) ([]models.Anomaly, int) {
	out := make([]models.Anomaly, 0, len(in))
	for _, a := range in {
		if models.IsAnomalyType(a.EventType) {
			out = append(out, a)
		}
	}
	return out, len(in) - len(out)
}

func inRepairZone(distance float64, zones []models.RepairZone) bool {
	for _, z := range zones {
		if z.Contains(distance) {
			return true
		}
	}
	return false
}

func sortResult(res *Result) {
	sort.SliceStable(res.Matches, func(i, j int) bool {
		a, b := res.Matches[i], res.Matches[j]
		if a.Later.CorrectedDistance != b.Later.CorrectedDistance {
			return a.Later.CorrectedDistance < b.Later.CorrectedDistance
		}
		return a.Earlier.ID < b.Earlier.ID
	})
	byDistance := func(s []models.Anomaly) {
		sort.SliceStable(s, func(i, j int) bool {
			if s[i].CorrectedDistance != s[j].CorrectedDistance {
				return s[i].CorrectedDistance < s[j].CorrectedDistance
			}
			return s[i].ID < s[j].ID
		})
	}
	byDistance(res.New)
	byDistance(res.Missing)
	byDistance(res.Repaired)
}

func (s *Stats) fill(res *Result) {
	s.Matched = len(res.Matches)
	s.New = len(res.New)
	s.Missing = len(res.Missing)
	s.Repaired = len(res.Repaired)

	var simSum, confSum float64
	for _, m := range res.Matches {
		s.ByLabel[m.Label]++
		simSum += m.Similarity.Score
		confSum += m.Confidence
	}
	if s.Matched > 0 {
		s.MeanSimilarity = simSum / float64(s.Matched)
		s.MeanConfidence = confSum / float64(s.Matched)
	}
	if s.EarlierCount > 0 {
		s.MatchRate = 100 * float64(s.Matched) / float64(s.EarlierCount)
	}
}
