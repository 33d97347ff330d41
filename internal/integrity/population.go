package integrity

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/growth"
	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// Clock quadrants.
const (
	QuadrantTop     = "Top"
	QuadrantRight   = "Right"
	QuadrantBottom  = "Bottom"
	QuadrantLeft    = "Left"
	QuadrantUnknown = "Unknown"
)

var (
	quadrantOrder  = []string{QuadrantTop, QuadrantRight, QuadrantBottom, QuadrantLeft, QuadrantUnknown}
	surfaceOrder   = []string{string(models.SurfaceInternal), string(models.SurfaceExternal), string(models.SurfaceUnknown)}
	depthBandOrder = []string{"0-20%", "20-40%", "40-60%", "60%+"}
)

// Quadrant maps a clock position onto a 3-hour band centred on 12, 3, 6 or 9.
func Quadrant(clock *float64) string {
	if clock == nil {
		return QuadrantUnknown
	}
	h := math.Mod(*clock, 12)
	switch {
	case h >= 10.5 || h < 1.5:
		return QuadrantTop
	case h < 4.5:
		return QuadrantRight
	case h < 7.5:
		return QuadrantBottom
	default:
		return QuadrantLeft
	}
}

// DepthBand buckets a depth percentage.
func DepthBand(depth float64) string {
	switch {
	case depth < 20:
		return depthBandOrder[0]
	case depth < 40:
		return depthBandOrder[1]
	case depth < 60:
		return depthBandOrder[2]
	default:
		return depthBandOrder[3]
	}
}

// Group holds growth statistics for one population slice.
type Group struct {
	Key           string  `json:"key"`
	Count         int     `json:"count"`
	MeanGrowth    float64 `json:"mean_growth_pct_yr"`
	MedianGrowth  float64 `json:"median_growth_pct_yr"`
	MaxGrowth     float64 `json:"max_growth_pct_yr"`
	PctHighGrowth float64 `json:"pct_high_growth"`
	MeanDepth     float64 `json:"mean_depth_pct"`
}

// Population slices growing anomalies by clock quadrant, surface and depth.
type Population struct {
	Total       int                       `json:"total"`
	ByQuadrant  []Group                   `json:"by_quadrant"`
	BySurface   []Group                   `json:"by_surface"`
	ByDepthBand []Group                   `json:"by_depth_band"`
	CrossTab    map[string]map[string]int `json:"quadrant_by_surface"`
}

// PopulationStats groups subjects with a known, non-negative growth rate.
func PopulationStats(subjects []Subject, p params.Integrity) Population {
	var rows []Subject
	for _, s := range subjects {
		if s.GrowthRate != nil && *s.GrowthRate >= 0 {
			rows = append(rows, s)
		}
	}

	pop := Population{
		Total:    len(rows),
		CrossTab: make(map[string]map[string]int, len(quadrantOrder)),
	}
	for _, q := range quadrantOrder {
		pop.CrossTab[q] = make(map[string]int, len(surfaceOrder))
	}

	byQ := make(map[string][]Subject)
	byS := make(map[string][]Subject)
	byD := make(map[string][]Subject)
	for _, s := range rows {
		q := Quadrant(s.Anomaly.ClockHours)
		surf := string(surfaceOf(s.Anomaly))
		byQ[q] = append(byQ[q], s)
		byS[surf] = append(byS[surf], s)
		byD[DepthBand(s.depth())] = append(byD[DepthBand(s.depth())], s)
		pop.CrossTab[q][surf]++
	}

	pop.ByQuadrant = groups(quadrantOrder, byQ, p.HighGrowthRate)
	pop.BySurface = groups(surfaceOrder, byS, p.HighGrowthRate)
	pop.ByDepthBand = groups(depthBandOrder, byD, p.HighGrowthRate)
	return pop
}

func surfaceOf(a models.Anomaly) models.Surface {
	if a.Surface == "" {
		return models.SurfaceUnknown
	}
	return models.NormalizeSurface(string(a.Surface))
}

func groups(order []string, by map[string][]Subject, high float64) []Group {
	out := make([]Group, 0, len(order))
	for _, key := range order {
		members := by[key]
		if len(members) == 0 {
			continue
		}
		rates := make([]float64, len(members))
		var rateSum, depthSum float64
		var highCount int
		for i, s := range members {
			rates[i] = *s.GrowthRate
			rateSum += rates[i]
			depthSum += s.depth()
			if rates[i] > high {
				highCount++
			}
		}
		sort.Float64s(rates)
		n := float64(len(members))
		out = append(out, Group{
			Key:           key,
			Count:         len(members),
			MeanGrowth:    rateSum / n,
			MedianGrowth:  growth.Quantile(rates, 0.5),
			MaxGrowth:     rates[len(rates)-1],
			PctHighGrowth: 100 * float64(highCount) / n,
			MeanDepth:     depthSum / n,
		})
	}
	return out
}
