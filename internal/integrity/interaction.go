package integrity

import (
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/params"
)

// Cluster severities.
const (
	SeverityHigh   = "HIGH"
	SeverityMedium = "MEDIUM"
	SeverityLow    = "LOW"
)

// Cluster is a group of anomalies close enough to interact under the ASME
// B31G spacing rule.
type Cluster struct {
	ID                int      `json:"id"`
	Members           []string `json:"members"`
	StartFt           float64  `json:"start_ft"`
	EndFt             float64  `json:"end_ft"`
	SpanFt            float64  `json:"span_ft"`
	EffectiveLengthIn float64  `json:"effective_length_in"`
	MaxDepth          float64  `json:"max_depth_pct"`
	AvgDepth          float64  `json:"avg_depth_pct"`
	MaxGrowth         *float64 `json:"max_growth_pct_yr,omitempty"`
	Severity          string   `json:"severity"`
}

// Interactions returns clusters of two or more interacting anomalies.
func Interactions(subjects []Subject, p params.Integrity) []Cluster {
	sorted := make([]Subject, len(subjects))
	copy(sorted, subjects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Anomaly.CorrectedDistance < sorted[j].Anomaly.CorrectedDistance
	})

	clusters := make([]Cluster, 0)
	for _, group := range interactingGroups(sorted, p) {
		if len(group) < 2 {
			continue
		}
		c := describe(group, p)
		c.ID = len(clusters) + 1
		clusters = append(clusters, c)
	}
	return clusters
}

// interactingGroups chains anomalies, already sorted by distance, whose
// edge-to-edge gap is within InteractionFactor wall thicknesses of the
// group's running far edge.
func interactingGroups(sorted []Subject, p params.Integrity) [][]Subject {
	var groups [][]Subject
	var current []Subject
	var farEdge, wt float64

	for _, s := range sorted {
		if len(current) > 0 {
			limit := wallThickness(wt, s, p) * p.InteractionFactor / 12
			if s.Anomaly.CorrectedDistance-farEdge <= limit {
				current = append(current, s)
				farEdge = math.Max(farEdge, end(s))
				wt = localWT(s, wt)
				continue
			}
			groups = append(groups, current)
		}
		current = []Subject{s}
		farEdge = end(s)
		wt = localWT(s, 0)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// wallThickness prefers the preceding anomaly's WT, then the next one's.
func wallThickness(prev float64, next Subject, p params.Integrity) float64 {
	if prev > 0 {
		return prev
	}
	if next.Anomaly.WallThicknessIn != nil && *next.Anomaly.WallThicknessIn > 0 {
		return *next.Anomaly.WallThicknessIn
	}
	return p.DefaultWallThicknessIn
}

func localWT(s Subject, fallback float64) float64 {
	if s.Anomaly.WallThicknessIn != nil && *s.Anomaly.WallThicknessIn > 0 {
		return *s.Anomaly.WallThicknessIn
	}
	return fallback
}

func end(s Subject) float64 {
	if s.Anomaly.LengthIn == nil {
		return s.Anomaly.CorrectedDistance
	}
	return s.Anomaly.CorrectedDistance + *s.Anomaly.LengthIn/12
}

func describe(group []Subject, p params.Integrity) Cluster {
	c := Cluster{
		Members: make([]string, len(group)),
		StartFt: group[0].Anomaly.CorrectedDistance,
		EndFt:   math.Inf(-1),
	}
	var depthSum float64
	for i, s := range group {
		c.Members[i] = s.Anomaly.ID
		c.EndFt = math.Max(c.EndFt, end(s))
		c.MaxDepth = math.Max(c.MaxDepth, s.depth())
		depthSum += s.depth()
		if s.GrowthRate != nil && (c.MaxGrowth == nil || *s.GrowthRate > *c.MaxGrowth) {
			g := *s.GrowthRate
			c.MaxGrowth = &g
		}
	}
	c.SpanFt = c.EndFt - c.StartFt
	c.EffectiveLengthIn = c.SpanFt * 12
	c.AvgDepth = depthSum / float64(len(group))

	growth := 0.0
	if c.MaxGrowth != nil {
		growth = *c.MaxGrowth
	}
	n := len(group)
	switch {
	case c.MaxDepth >= p.HighClusterDepth || growth >= p.HighGrowthRate || n >= p.HighClusterMembers:
		c.Severity = SeverityHigh
	case c.MaxDepth >= p.MediumClusterDepth || growth >= p.MediumClusterGrowth || n >= p.MediumClusterMembers:
		c.Severity = SeverityMedium
	default:
		c.Severity = SeverityLow
	}
	return c
}
