package chain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Trend is a least-squares line of depth against year.
type Trend struct {
	Slope        float64 `json:"slope_pct_yr"`
	Intercept    float64 `json:"intercept"`
	RSquared     float64 `json:"r_squared"`
	Accelerating bool    `json:"accelerating"`
	Points       int     `json:"points"`
}

// At predicts depth in year, clamped to [0, 100].
func (t Trend) At(year float64) float64 {
	return math.Max(0, math.Min(100, t.Slope*year+t.Intercept))
}

// Fit returns the trend through (years[i], depths[i]). It needs at least two
// distinct years.
func Fit(years, depths []float64) (Trend, bool) {
	n := len(years)
	if n < 2 || n != len(depths) {
		return Trend{}, false
	}

	if floats.Min(years) == floats.Max(years) {
		return Trend{}, false
	}

	t := Trend{Points: n}
	t.Intercept, t.Slope = stat.LinearRegression(years, depths, nil, false)
	if floats.Min(depths) == floats.Max(depths) {
		t.RSquared = 1
	} else {
		t.RSquared = stat.RSquared(years, depths, nil, t.Intercept, t.Slope)
	}

	// Three points define a parabola whose leading coefficient has the sign
	// of the change in segment slope.
	if n == 3 && years[1] != years[0] && years[2] != years[1] {
		first := (depths[1] - depths[0]) / (years[1] - years[0])
		second := (depths[2] - depths[1]) / (years[2] - years[1])
		t.Accelerating = second > first
	}
	return t, true
}
