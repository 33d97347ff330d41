package models

import (
	"fmt"
	"sort"
)

// Surface classifies where metal loss sits relative to the pipe wall.
type Surface string

const (
	SurfaceInternal Surface = "Internal"
	SurfaceExternal Surface = "External"
	SurfaceUnknown  Surface = "Unknown"
)

// GirthWeld is a circumferential weld reported by one inspection run.
type GirthWeld struct {
	RunYear     int     `json:"run_year" validate:"required,gt=1900"`
	JointNumber *int    `json:"joint_number,omitempty"`
	Distance    float64 `json:"distance_ft"`
}

// Anomaly is a single feature reported by one inspection run.
//
// CorrectedDistance is only meaningful inside a run-pair context; alignment
// returns corrected copies and never mutates records loaded from a source.
type Anomaly struct {
	ID                string   `json:"id" validate:"required"`
	RunYear           int      `json:"run_year" validate:"required,gt=1900"`
	JointNumber       *int     `json:"joint_number,omitempty"`
	Distance          float64  `json:"distance_ft"`
	CorrectedDistance float64  `json:"corrected_distance_ft"`
	ClockHours        *float64 `json:"clock_hours,omitempty" validate:"omitempty,gte=0,lt=12"`
	DepthPct          *float64 `json:"depth_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	LengthIn          *float64 `json:"length_in,omitempty" validate:"omitempty,gte=0"`
	WidthIn           *float64 `json:"width_in,omitempty" validate:"omitempty,gte=0"`
	EventType         string   `json:"event_type" validate:"required"`
	Surface           Surface  `json:"surface,omitempty"`
	WallThicknessIn   *float64 `json:"wall_thickness_in,omitempty" validate:"omitempty,gt=0"`
	Comments          string   `json:"comments,omitempty"`
}

// RepairZone is a span reported as sleeved, wrapped or otherwise repaired.
type RepairZone struct {
	Start float64 `json:"start_ft"`
	End   float64 `json:"end_ft" validate:"gtefield=Start"`
	Kind  string  `json:"kind,omitempty"`
}

// Contains reports whether a distance lies inside the zone.
func (z RepairZone) Contains(distance float64) bool {
	return distance >= z.Start && distance <= z.End
}

// Run is one inspection survey of the line.
type Run struct {
	Year        int          `json:"year" validate:"required,gt=1900"`
	Vendor      string       `json:"vendor,omitempty"`
	Anomalies   []Anomaly    `json:"anomalies" validate:"dive"`
	GirthWelds  []GirthWeld  `json:"girth_welds" validate:"dive"`
	RepairZones []RepairZone `json:"repair_zones,omitempty" validate:"dive"`
}

// Dataset groups the runs of one pipeline that are analysed together.
type Dataset struct {
	ID   string `json:"id"`
	Runs []Run  `json:"runs" validate:"min=2,dive"`
}

// SortedRuns returns the runs ordered by year.
func (d Dataset) SortedRuns() []Run {
	runs := make([]Run, len(d.Runs))
	copy(runs, d.Runs)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Year < runs[j].Year })
	return runs
}

// RunPair identifies an ordered pair of inspection years.
type RunPair struct {
	Earlier int `json:"earlier"`
	Later   int `json:"later"`
}

// Key is the canonical string form used in routes and maps, e.g. "2015-2022".
func (p RunPair) Key() string {
	return fmt.Sprintf("%d-%d", p.Earlier, p.Later)
}

// Years is the time between the two runs.
func (p RunPair) Years() float64 {
	return float64(p.Later - p.Earlier)
}

// ParseRunPair parses the form produced by Key.
func ParseRunPair(key string) (RunPair, error) {
	var p RunPair
	if _, err := fmt.Sscanf(key, "%d-%d", &p.Earlier, &p.Later); err != nil {
		return p, fmt.Errorf("invalid run pair %q: %w", key, err)
	}
	if p.Later <= p.Earlier {
		return p, fmt.Errorf("invalid run pair %q: later year must follow earlier", key)
	}
	return p, nil
}
