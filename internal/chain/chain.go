package chain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/matching"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// ErrNotConsecutive is returned when the two pairs do not share a middle run.
var ErrNotConsecutive = errors.New("run pairs do not share a middle run")

// Chain lifecycles.
const (
	LifecycleGrowing   = "Growing"
	LifecycleStable    = "Stable"
	LifecycleShrinking = "Shrinking"
	LifecycleUnknown   = "Unknown"
)

// Observation is one run's view of a tracked anomaly.
type Observation struct {
	Year       int      `json:"year"`
	AnomalyID  string   `json:"anomaly_id"`
	DistanceFt float64  `json:"distance_ft"`
	ClockHours *float64 `json:"clock_hours,omitempty"`
	DepthPct   *float64 `json:"depth_pct,omitempty"`
	EventType  string   `json:"event_type"`
}

func observe(a models.Anomaly) Observation {
	return Observation{
		Year:       a.RunYear,
		AnomalyID:  a.ID,
		DistanceFt: a.Distance,
		ClockHours: a.ClockHours,
		DepthPct:   a.DepthPct,
		EventType:  a.EventType,
	}
}

// Chain links one anomaly across three runs through its middle observation.
type Chain struct {
	MiddleID      string         `json:"middle_id"`
	Observations  [3]Observation `json:"observations"`
	Rates         [2]*float64    `json:"rates_pct_yr"`
	OverallRate   *float64       `json:"overall_rate_pct_yr,omitempty"`
	Confidences   [2]float64     `json:"confidences"`
	MinConfidence float64        `json:"min_confidence"`
	Trend         *Trend         `json:"trend,omitempty"`
	Lifecycle     string         `json:"lifecycle"`
	Flagged       bool           `json:"flagged"`
	DirectAgrees  *bool          `json:"direct_agrees,omitempty"`
}

// LatestID is the id of the anomaly in the most recent run.
func (c Chain) LatestID() string {
	return c.Observations[2].AnomalyID
}

// Summary counts how anomalies appear and disappear across the three runs.
type Summary struct {
	Years                  [3]int   `json:"years"`
	TrackedAll             int      `json:"tracked_all"`
	NewInMiddle            int      `json:"new_in_middle"`
	NewInLatest            int      `json:"new_in_latest"`
	DisappearedAfterFirst  int      `json:"disappeared_after_first"`
	DisappearedAfterMiddle int      `json:"disappeared_after_middle"`
	RepairedAfterFirst     int      `json:"repaired_after_first"`
	RepairedAfterMiddle    int      `json:"repaired_after_middle"`
	Growing                int      `json:"growing"`
	Stable                 int      `json:"stable"`
	Shrinking              int      `json:"shrinking"`
	Accelerating           int      `json:"accelerating"`
	MeanOverallRate        *float64 `json:"mean_overall_rate,omitempty"`
	DirectAgreementPct     *float64 `json:"direct_agreement_pct,omitempty"`
}

// Result is the three-run tracking output.
type Result struct {
	Chains  []Chain `json:"chains"`
	Summary Summary `json:"summary"`
}

// ByLatestID indexes chains by the id of their latest observation.
func (r *Result) ByLatestID() map[string]*Chain {
	out := make(map[string]*Chain, len(r.Chains))
	for i := range r.Chains {
		out[r.Chains[i].LatestID()] = &r.Chains[i]
	}
	return out
}

// Pair bundles one run pair's matching and growth results.
type Pair struct {
	Matches *matching.Result
	Growth  *growth.Result
}

// Build links the early and late pairs through their shared middle run. The
// direct first-to-last matching is optional and only feeds the agreement
// statistic.
func Build(early, late Pair, direct *matching.Result, p params.Chain) (*Result, error) {
	if early.Growth.Pair.Later != late.Growth.Pair.Earlier {
		return nil, fmt.Errorf("%w: %s then %s", ErrNotConsecutive, early.Growth.Pair.Key(), late.Growth.Pair.Key())
	}

	byMiddle := make(map[string]growth.Record, len(early.Growth.Records))
	for _, r := range early.Growth.Records {
		byMiddle[r.Later.ID] = r
	}

	var directByFirst map[string]string
	if direct != nil {
		directByFirst = make(map[string]string, len(direct.Matches))
		for _, m := range direct.Matches {
			directByFirst[m.Earlier.ID] = m.Later.ID
		}
	}

	res := &Result{}
	res.Summary.Years = [3]int{early.Growth.Pair.Earlier, early.Growth.Pair.Later, late.Growth.Pair.Later}

	for _, second := range late.Growth.Records {
		first, ok := byMiddle[second.Earlier.ID]
		if !ok {
			res.Summary.NewInMiddle++
			continue
		}
		res.Chains = append(res.Chains, link(first, second, directByFirst, p))
	}

	sort.SliceStable(res.Chains, func(i, j int) bool {
		return res.Chains[i].Observations[2].DistanceFt < res.Chains[j].Observations[2].DistanceFt
	})

	summarize(res, early.Matches, late.Matches)
	return res, nil
}

func link(first, second growth.Record, directByFirst map[string]string, p params.Chain) Chain {
	c := Chain{
		MiddleID:     second.Earlier.ID,
		Observations: [3]Observation{observe(first.Earlier), observe(first.Later), observe(second.Later)},
		Rates:        [2]*float64{first.GrowthRate, second.GrowthRate},
		Confidences:  [2]float64{first.Confidence, second.Confidence},
	}
	c.MinConfidence = math.Min(first.Confidence, second.Confidence)

	start, end := c.Observations[0], c.Observations[2]
	if start.DepthPct != nil && end.DepthPct != nil && end.Year > start.Year {
		r := (*end.DepthPct - *start.DepthPct) / float64(end.Year-start.Year)
		c.OverallRate = &r
	}

	var years, depths []float64
	for _, o := range c.Observations {
		if o.DepthPct != nil {
			years = append(years, float64(o.Year))
			depths = append(depths, *o.DepthPct)
		}
	}
	if t, ok := Fit(years, depths); ok {
		c.Trend = &t
	}

	switch {
	case c.Trend == nil:
		c.Lifecycle = LifecycleUnknown
	case c.Trend.Slope > p.StableBand:
		c.Lifecycle = LifecycleGrowing
	case c.Trend.Slope < -p.StableBand:
		c.Lifecycle = LifecycleShrinking
		c.Flagged = true
	default:
		c.Lifecycle = LifecycleStable
	}

	if directByFirst != nil {
		agrees := directByFirst[start.AnomalyID] == end.AnomalyID
		c.DirectAgrees = &agrees
	}
	return c
}

func summarize(res *Result, early, late *matching.Result) {
	s := &res.Summary
	s.TrackedAll = len(res.Chains)
	if early != nil {
		s.DisappearedAfterFirst = len(early.Missing)
		s.RepairedAfterFirst = len(early.Repaired)
	}
	if late != nil {
		s.NewInLatest = len(late.New)
		s.DisappearedAfterMiddle = len(late.Missing)
		s.RepairedAfterMiddle = len(late.Repaired)
	}

	var rateSum float64
	var rates, checked, agreed int
	for _, c := range res.Chains {
		switch c.Lifecycle {
		case LifecycleGrowing:
			s.Growing++
		case LifecycleStable:
			s.Stable++
		case LifecycleShrinking:
			s.Shrinking++
		}
		if c.Trend != nil && c.Trend.Accelerating {
			s.Accelerating++
		}
		if c.OverallRate != nil {
			rateSum += *c.OverallRate
			rates++
		}
		if c.DirectAgrees != nil {
			checked++
			if *c.DirectAgrees {
				agreed++
			}
		}
	}
	if rates > 0 {
		mean := rateSum / float64(rates)
		s.MeanOverallRate = &mean
	}
	if checked > 0 {
		pct := 100 * float64(agreed) / float64(checked)
		s.DirectAgreementPct = &pct
	}
}
