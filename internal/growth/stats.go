package growth

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/params"
)

// Summary describes the distribution of growth rates in one pair.
type Summary struct {
	Count       int            `json:"count"`
	WithRate    int            `json:"with_rate"`
	Mean        float64        `json:"mean"`
	Median      float64        `json:"median"`
	Std         float64        `json:"std"`
	Min         float64        `json:"min"`
	Max         float64        `json:"max"`
	PctNegative float64        `json:"pct_negative"`
	PctHigh     float64        `json:"pct_high"`
	PctSevere   float64        `json:"pct_severe"`
	Outliers    int            `json:"outliers"`
	ByClass     map[string]int `json:"by_class"`
	ByRisk      map[string]int `json:"by_risk"`
}

// Summarize computes rate statistics over the records with a known rate.
func Summarize(records []Record, p params.Growth) Summary {
	s := Summary{
		Count:   len(records),
		ByClass: make(map[string]int),
		ByRisk:  map[string]int{RiskCritical: 0, RiskHigh: 0, RiskMedium: 0, RiskLow: 0},
	}
	for _, r := range records {
		s.ByClass[r.GrowthClass]++
		s.ByRisk[r.RiskCategory]++
		if r.Outlier() {
			s.Outliers++
		}
	}

	rates := knownRates(records)
	s.WithRate = len(rates)
	if len(rates) == 0 {
		return s
	}
	sort.Float64s(rates)

	n := float64(len(rates))
	var sum float64
	var neg, high, severe int
	for _, r := range rates {
		sum += r
		switch {
		case r < 0:
			neg++
		case r > p.MaxPlausibleRate:
			severe++
			high++
		case r > p.HighRate:
			high++
		}
	}
	s.Mean = sum / n
	s.Median = Quantile(rates, 0.5)
	s.Min, s.Max = rates[0], rates[len(rates)-1]

	var sq float64
	for _, r := range rates {
		sq += (r - s.Mean) * (r - s.Mean)
	}
	s.Std = math.Sqrt(sq / n)

	s.PctNegative = 100 * float64(neg) / n
	s.PctHigh = 100 * float64(high) / n
	s.PctSevere = 100 * float64(severe) / n
	return s
}

// Quantile interpolates linearly between closest ranks of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

func knownRates(records []Record) []float64 {
	rates := make([]float64, 0, len(records))
	for _, r := range records {
		if r.GrowthRate != nil {
			rates = append(rates, *r.GrowthRate)
		}
	}
	return rates
}
