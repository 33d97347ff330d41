package params

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Alignment tunes girth-weld anchoring.
type Alignment struct {
	MinAnchors      int     `yaml:"min_anchors" validate:"gte=2"`
	WeldToleranceFt float64 `yaml:"weld_tolerance_ft" validate:"gt=0"`
}

// Weights are the similarity term weights.
type Weights struct {
	Distance   float64 `yaml:"distance" validate:"gte=0"`
	Clock      float64 `yaml:"clock" validate:"gte=0"`
	Depth      float64 `yaml:"depth" validate:"gte=0"`
	Dimensions float64 `yaml:"dimensions" validate:"gte=0"`
	Type       float64 `yaml:"type" validate:"gte=0"`
}

// Sum of all weights.
func (w Weights) Sum() float64 {
	return w.Distance + w.Clock + w.Depth + w.Dimensions + w.Type
}

// ConfidenceWeights blend the confidence factors.
type ConfidenceWeights struct {
	Similarity     float64 `yaml:"similarity" validate:"gte=0"`
	Uniqueness     float64 `yaml:"uniqueness" validate:"gte=0"`
	Plausibility   float64 `yaml:"plausibility" validate:"gte=0"`
	JointAgreement float64 `yaml:"joint_agreement" validate:"gte=0"`
}

// Matching tunes candidate search, scoring and assignment.
type Matching struct {
	DistanceToleranceFt  float64           `yaml:"distance_tolerance_ft" validate:"gt=0"`
	ClockToleranceHours  float64           `yaml:"clock_tolerance_hours" validate:"gt=0,lte=6"`
	MaxCandidates        int               `yaml:"max_candidates" validate:"gte=1"`
	DepthGrowthScale     float64           `yaml:"depth_growth_scale" validate:"gt=0"`
	DepthShrinkScale     float64           `yaml:"depth_shrink_scale" validate:"gt=0"`
	DimensionToleranceIn float64           `yaml:"dimension_tolerance_in" validate:"gt=0"`
	CompatibleTypeScore  float64           `yaml:"compatible_type_score" validate:"gte=0,lte=1"`
	MinSimilarity        float64           `yaml:"min_similarity" validate:"gt=0,lt=1"`
	MaxProblemSize       int               `yaml:"max_problem_size" validate:"gte=2"`
	WindowFt             float64           `yaml:"window_ft" validate:"gt=0"`
	WindowOverlapFt      float64           `yaml:"window_overlap_ft" validate:"gte=0"`
	UniquenessScale      float64           `yaml:"uniqueness_scale" validate:"gt=0"`
	Weights              Weights           `yaml:"weights"`
	Confidence           ConfidenceWeights `yaml:"confidence"`
	HighConfidence       float64           `yaml:"high_confidence" validate:"gt=0,lte=1"`
	MediumConfidence     float64           `yaml:"medium_confidence" validate:"gt=0,ltfield=HighConfidence"`
	WindowParallelism    int               `yaml:"window_parallelism" validate:"gte=1"`
	RequireAnomalyTypes  bool              `yaml:"require_anomaly_types"`
}

// Growth tunes the growth and remaining-life calculations.
type Growth struct {
	MaxPlausibleRate  float64 `yaml:"max_plausible_rate" validate:"gt=0"`
	RepairThreshold   float64 `yaml:"repair_threshold" validate:"gt=0,lte=100"`
	HighRate          float64 `yaml:"high_rate" validate:"gt=0"`
	LowRate           float64 `yaml:"low_rate" validate:"gt=0"`
	LifeHorizonYears  float64 `yaml:"life_horizon_years" validate:"gt=0"`
	CriticalDepth     float64 `yaml:"critical_depth" validate:"gt=0,lte=100"`
	CriticalLifeYears float64 `yaml:"critical_life_years" validate:"gt=0"`
	OutlierIQRFactor  float64 `yaml:"outlier_iqr_factor" validate:"gt=0"`
	TopConcerns       int     `yaml:"top_concerns" validate:"gte=1"`
}

// Chain tunes three-run tracking.
type Chain struct {
	StableBand float64 `yaml:"stable_band" validate:"gte=0"`
}

// UrgencyWeights blend the dig-list urgency components.
type UrgencyWeights struct {
	Depth  float64 `yaml:"depth" validate:"gte=0"`
	Growth float64 `yaml:"growth" validate:"gte=0"`
	Life   float64 `yaml:"life" validate:"gte=0"`
}

// SegmentWeights are the maximum points each component adds to a segment
// risk score.
type SegmentWeights struct {
	Density  float64 `yaml:"density" validate:"gte=0"`
	Depth    float64 `yaml:"depth" validate:"gte=0"`
	Growth   float64 `yaml:"growth" validate:"gte=0"`
	Critical float64 `yaml:"critical" validate:"gte=0"`
}

// Integrity tunes the integrity analytics.
type Integrity struct {
	SegmentLengthFt        float64        `yaml:"segment_length_ft" validate:"gt=0"`
	HighRiskSegment        float64        `yaml:"high_risk_segment" validate:"gt=0,lte=100"`
	SegmentWeights         SegmentWeights `yaml:"segment_weights"`
	SegmentCountScale      float64        `yaml:"segment_count_scale" validate:"gt=0"`
	SegmentCriticalScale   float64        `yaml:"segment_critical_scale" validate:"gt=0"`
	InteractionFactor      float64        `yaml:"interaction_factor" validate:"gt=0"`
	DefaultWallThicknessIn float64        `yaml:"default_wall_thickness_in" validate:"gt=0"`
	HighClusterDepth       float64        `yaml:"high_cluster_depth" validate:"gt=0,lte=100"`
	HighClusterMembers     int            `yaml:"high_cluster_members" validate:"gte=2"`
	MediumClusterDepth     float64        `yaml:"medium_cluster_depth" validate:"gt=0,ltefield=HighClusterDepth"`
	MediumClusterGrowth    float64        `yaml:"medium_cluster_growth" validate:"gt=0,ltefield=HighGrowthRate"`
	MediumClusterMembers   int            `yaml:"medium_cluster_members" validate:"gte=2,ltefield=HighClusterMembers"`
	UrgencyWeights         UrgencyWeights `yaml:"urgency_weights"`
	ImmediateUrgency       float64        `yaml:"immediate_urgency" validate:"gt=0,lte=100"`
	ScheduledUrgency       float64        `yaml:"scheduled_urgency" validate:"gt=0,ltefield=ImmediateUrgency"`
	ImmediateDepth         float64        `yaml:"immediate_depth" validate:"gt=0,lte=100"`
	ScheduledDepth         float64        `yaml:"scheduled_depth" validate:"gt=0,ltefield=ImmediateDepth"`
	ImmediateLifeYears     float64        `yaml:"immediate_life_years" validate:"gt=0"`
	ScheduledLifeYears     float64        `yaml:"scheduled_life_years" validate:"gtefield=ImmediateLifeYears"`
	HighGrowthRate         float64        `yaml:"high_growth_rate" validate:"gt=0"`
}

// Forecast tunes the Virtual ILI extrapolation.
type Forecast struct {
	Thresholds    []float64 `yaml:"thresholds" validate:"dive,gt=0,lte=100"`
	TopConcerns   int       `yaml:"top_concerns" validate:"gte=1"`
	CriticalDepth float64   `yaml:"critical_depth" validate:"gt=0,lte=100"`
	HighDepth     float64   `yaml:"high_depth" validate:"gt=0,ltefield=CriticalDepth"`
	MediumDepth   float64   `yaml:"medium_depth" validate:"gt=0,ltefield=HighDepth"`
}

// Params holds every weight, tolerance and threshold used by the pipeline.
type Params struct {
	Alignment Alignment `yaml:"alignment"`
	Matching  Matching  `yaml:"matching"`
	Growth    Growth    `yaml:"growth"`
	Chain     Chain     `yaml:"chain"`
	Integrity Integrity `yaml:"integrity"`
	Forecast  Forecast  `yaml:"forecast"`
}

// Default returns the calibrated reference parameters.
func Default() Params {
	return Params{
		Alignment: Alignment{
			MinAnchors:      10,
			WeldToleranceFt: 10,
		},
		Matching: Matching{
			DistanceToleranceFt:  3.0,
			ClockToleranceHours:  1.0,
			MaxCandidates:        16,
			DepthGrowthScale:     30,
			DepthShrinkScale:     10,
			DimensionToleranceIn: 3,
			CompatibleTypeScore:  0.7,
			MinSimilarity:        0.40,
			MaxProblemSize:       400,
			WindowFt:             1000,
			WindowOverlapFt:      50,
			UniquenessScale:      0.2,
			Weights: Weights{
				Distance:   0.35,
				Clock:      0.25,
				Depth:      0.20,
				Dimensions: 0.10,
				Type:       0.10,
			},
			Confidence: ConfidenceWeights{
				Similarity:     0.40,
				Uniqueness:     0.25,
				Plausibility:   0.20,
				JointAgreement: 0.15,
			},
			HighConfidence:      0.85,
			MediumConfidence:    0.60,
			WindowParallelism:   4,
			RequireAnomalyTypes: true,
		},
		Growth: Growth{
			MaxPlausibleRate:  5.0,
			RepairThreshold:   80,
			HighRate:          3.0,
			LowRate:           1.0,
			LifeHorizonYears:  15,
			CriticalDepth:     70,
			CriticalLifeYears: 3,
			OutlierIQRFactor:  1.5,
			TopConcerns:       20,
		},
		Chain: Chain{
			StableBand: 0.05,
		},
		Integrity: Integrity{
			SegmentLengthFt: 1000,
			HighRiskSegment: 60,
			SegmentWeights: SegmentWeights{
				Density:  25,
				Depth:    35,
				Growth:   25,
				Critical: 15,
			},
			SegmentCountScale:      5,
			SegmentCriticalScale:   3,
			InteractionFactor:      6,
			DefaultWallThicknessIn: 0.3,
			HighClusterDepth:       60,
			HighClusterMembers:     4,
			MediumClusterDepth:     40,
			MediumClusterGrowth:    1,
			MediumClusterMembers:   3,
			UrgencyWeights: UrgencyWeights{
				Depth:  0.40,
				Growth: 0.30,
				Life:   0.30,
			},
			ImmediateUrgency:       75,
			ScheduledUrgency:       50,
			ImmediateDepth:         70,
			ScheduledDepth:         50,
			ImmediateLifeYears:     3,
			ScheduledLifeYears:     7,
			HighGrowthRate:         3,
		},
		Forecast: Forecast{
			Thresholds:    []float64{50, 60, 70, 80},
			TopConcerns:   20,
			CriticalDepth: 70,
			HighDepth:     50,
			MediumDepth:   30,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and cross-field ordering.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	if p.Matching.Weights.Sum() <= 0 {
		return errors.New("invalid params: similarity weights sum to zero")
	}
	if p.Matching.WindowOverlapFt < p.Matching.DistanceToleranceFt {
		return fmt.Errorf("invalid params: window_overlap_ft %.1f is below distance_tolerance_ft %.1f",
			p.Matching.WindowOverlapFt, p.Matching.DistanceToleranceFt)
	}
	return nil
}

// Load overlays the YAML file at path on Default. An empty path yields the defaults.
func Load(path string) (Params, error) {
	p := Default()
	if path == "" {
		return p, p.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse params %s: %w", path, err)
	}
	return p, p.Validate()
}
