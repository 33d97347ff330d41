package alignment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/02loveslollipop/corrosight/internal/models"
	"github.com/02loveslollipop/corrosight/internal/params"
)

// ErrInsufficientAnchors is matched by errors.Is for InsufficientAnchorsError.
var ErrInsufficientAnchors = errors.New("insufficient alignment anchors")

// InsufficientAnchorsError reports a run pair that cannot be aligned reliably.
type InsufficientAnchorsError struct {
	Pair     models.RunPair
	Found    int
	Required int
}

func (e *InsufficientAnchorsError) Error() string {
	return fmt.Sprintf("align %s: %d matched girth welds, need at least %d", e.Pair.Key(), e.Found, e.Required)
}

func (e *InsufficientAnchorsError) Is(target error) bool {
	return target == ErrInsufficientAnchors
}

// DriftStats summarizes later-minus-earlier odometer offsets over the anchors.
type DriftStats struct {
	Anchors      int      `json:"anchors"`
	JointAnchors int      `json:"joint_anchors"`
	NearAnchors  int      `json:"nearest_anchors"`
	MinJoint     *int     `json:"min_joint,omitempty"`
	MaxJoint     *int     `json:"max_joint,omitempty"`
	Mean         float64  `json:"mean_ft"`
	Std          float64  `json:"std_ft"`
	Min          float64  `json:"min_ft"`
	Max          float64  `json:"max_ft"`
	AbsMean      float64  `json:"abs_mean_ft"`
	Coverage     *float64 `json:"coverage_pct,omitempty"`
}

// Result is the alignment of one run pair.
type Result struct {
	Pair    models.RunPair `json:"pair"`
	Mapping Mapping        `json:"mapping"`
	Drift   DriftStats     `json:"drift"`
}

// Align matches the girth welds of two runs and builds the correction from
// the earlier run's raw distance to the later run's frame.
func Align(earlier, later models.Run, p params.Alignment) (*Result, error) {
	pair := models.RunPair{Earlier: earlier.Year, Later: later.Year}

	mapping := NewMapping(MatchWelds(earlier.GirthWelds, later.GirthWelds, p.WeldToleranceFt))
	if len(mapping.Anchors) < p.MinAnchors {
		return nil, &InsufficientAnchorsError{Pair: pair, Found: len(mapping.Anchors), Required: p.MinAnchors}
	}

	drift := computeDrift(mapping.Anchors)
	if n := min(len(earlier.GirthWelds), len(later.GirthWelds)); n > 0 {
		cov := 100 * float64(len(mapping.Anchors)) / float64(n)
		drift.Coverage = &cov
	}

	return &Result{Pair: pair, Mapping: mapping, Drift: drift}, nil
}

// MatchWelds pairs welds by joint number and then, for the welds left over,
// by nearest distance after projecting through the joint-number anchors.
func MatchWelds(earlier, later []models.GirthWeld, tolerance float64) []Anchor {
	laterByJoint := make(map[int]int, len(later))
	for i, gw := range later {
		if gw.JointNumber == nil {
			continue
		}
		if _, seen := laterByJoint[*gw.JointNumber]; !seen {
			laterByJoint[*gw.JointNumber] = i
		}
	}

	anchors := make([]Anchor, 0, len(earlier))
	usedEarlier := make([]bool, len(earlier))
	usedLater := make([]bool, len(later))
	seenJoint := make(map[int]bool, len(earlier))

	for i, gw := range earlier {
		if gw.JointNumber == nil || seenJoint[*gw.JointNumber] {
			continue
		}
		seenJoint[*gw.JointNumber] = true
		j, ok := laterByJoint[*gw.JointNumber]
		if !ok || usedLater[j] {
			continue
		}
		usedEarlier[i], usedLater[j] = true, true
		joint := *gw.JointNumber
		anchors = append(anchors, Anchor{Raw: gw.Distance, Corrected: later[j].Distance, JointNumber: &joint, Method: MethodJoint})
	}

	provisional := NewMapping(anchors)

	type candidate struct {
		e, l int
		gap  float64
	}
	var cands []candidate
	laterOrder := make([]int, 0, len(later))
	for j := range later {
		if !usedLater[j] {
			laterOrder = append(laterOrder, j)
		}
	}
	sort.SliceStable(laterOrder, func(a, b int) bool { return later[laterOrder[a]].Distance < later[laterOrder[b]].Distance })

	for i, gw := range earlier {
		if usedEarlier[i] {
			continue
		}
		projected := provisional.Correct(gw.Distance)
		k := sort.Search(len(laterOrder), func(k int) bool { return later[laterOrder[k]].Distance >= projected-tolerance })
		for ; k < len(laterOrder); k++ {
			j := laterOrder[k]
			gap := math.Abs(later[j].Distance - projected)
			if later[j].Distance > projected+tolerance {
				break
			}
			if gap <= tolerance {
				cands = append(cands, candidate{e: i, l: j, gap: gap})
			}
		}
	}

	// Closest pairs first so each weld takes its nearest free partner.
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].gap < cands[b].gap })
	for _, c := range cands {
		if usedEarlier[c.e] || usedLater[c.l] {
			continue
		}
		usedEarlier[c.e], usedLater[c.l] = true, true
		anchors = append(anchors, Anchor{Raw: earlier[c.e].Distance, Corrected: later[c.l].Distance, Method: MethodNearest})
	}

	return anchors
}

func computeDrift(anchors []Anchor) DriftStats {
	stats := DriftStats{Anchors: len(anchors)}
	if len(anchors) == 0 {
		return stats
	}

	stats.Min, stats.Max = math.Inf(1), math.Inf(-1)
	var sum, absSum float64
	for _, a := range anchors {
		d := a.Corrected - a.Raw
		sum += d
		absSum += math.Abs(d)
		stats.Min = math.Min(stats.Min, d)
		stats.Max = math.Max(stats.Max, d)

		switch a.Method {
		case MethodJoint:
			stats.JointAnchors++
		case MethodNearest:
			stats.NearAnchors++
		}
		if a.JointNumber != nil {
			j := *a.JointNumber
			if stats.MinJoint == nil || j < *stats.MinJoint {
				stats.MinJoint = &j
			}
			if stats.MaxJoint == nil || j > *stats.MaxJoint {
				stats.MaxJoint = &j
			}
		}
	}
	n := float64(len(anchors))
	stats.Mean = sum / n
	stats.AbsMean = absSum / n

	var sq float64
	for _, a := range anchors {
		d := a.Corrected - a.Raw - stats.Mean
		sq += d * d
	}
	stats.Std = math.Sqrt(sq / n)
	return stats
}
