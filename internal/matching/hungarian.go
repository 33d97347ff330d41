package matching

import (
	"math"
)

// SolveMax returns the row-to-column assignment that maximizes the total
// weight of w. A weight of zero means "no edge"; rows left on a non-edge
// or padding column are reported as -1.
func SolveMax(w [][]float64) ([]int, error) {
	rows := len(w)
	if rows == 0 {
		return nil, &AssignmentInfeasibleError{Reason: "no rows"}
	}
	cols := len(w[0])
	edges := 0
	for _, row := range w {
		if len(row) != cols {
			return nil, &AssignmentInfeasibleError{Rows: rows, Cols: cols, Reason: "ragged weight matrix"}
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return nil, &AssignmentInfeasibleError{Rows: rows, Cols: cols, Reason: "non-finite or negative weight"}
			}
			if v > 0 {
				edges++
			}
		}
	}
	if cols == 0 || edges == 0 {
		return nil, &AssignmentInfeasibleError{Rows: rows, Cols: cols, Reason: "no usable edges"}
	}

	n := max(rows, cols)
	cost := func(i, j int) float64 {
		if i < rows && j < cols {
			return -w[i][j]
		}
		return 0
	}

	// Potentials formulation, 1-indexed with column 0 as the virtual start.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	assign := make([]int, rows)
	for i := range assign {
		assign[i] = -1
	}
	for j := 1; j <= n; j++ {
		i := p[j] - 1
		if i >= 0 && i < rows && j-1 < cols && w[i][j-1] > 0 {
			assign[i] = j - 1
		}
	}
	return assign, nil
}
