package matching

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/corrosight/internal/params"
)

// edge links earlier anomaly row to later anomaly col.
type edge struct {
	row, col int
	sim      Similarity
}

// problem is one independently solvable slice of the edge graph.
type problem struct {
	window int
	edges  []edge
	// owned reports whether a row sits in this problem's core range.
	owned map[int]bool
}

type proposal struct {
	edge
	window int
	owned  bool
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}

// partition splits the edges into connected components and cuts components
// larger than MaxProblemSize rows into overlapping distance windows.
// rowPos gives each earlier row's corrected distance.
func partition(edges []edge, rowPos []float64, nCols int, p params.Matching) []problem {
	nRows := len(rowPos)
	uf := newUnionFind(nRows + nCols)
	for _, e := range edges {
		uf.union(e.row, nRows+e.col)
	}

	byRoot := make(map[int][]edge)
	var roots []int
	for _, e := range edges {
		r := uf.find(e.row)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], e)
	}
	sort.Ints(roots)

	var problems []problem
	for _, r := range roots {
		comp := byRoot[r]
		rows := distinctRows(comp)
		if len(rows) <= p.MaxProblemSize {
			owned := make(map[int]bool, len(rows))
			for _, row := range rows {
				owned[row] = true
			}
			problems = append(problems, problem{window: len(problems), edges: comp, owned: owned})
			continue
		}
		problems = append(problems, windows(comp, rows, rowPos, len(problems), p)...)
	}
	return problems
}

func windows(comp []edge, rows []int, rowPos []float64, first int, p params.Matching) []problem {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range rows {
		lo = math.Min(lo, rowPos[row])
		hi = math.Max(hi, rowPos[row])
	}

	var out []problem
	for start := lo; start <= hi; start += p.WindowFt {
		end := start + p.WindowFt
		pr := problem{window: first + len(out), owned: make(map[int]bool)}
		for _, e := range comp {
			pos := rowPos[e.row]
			if pos < start-p.WindowOverlapFt || pos >= end+p.WindowOverlapFt {
				continue
			}
			pr.edges = append(pr.edges, e)
			if pos >= start && pos < end {
				pr.owned[e.row] = true
			}
		}
		if len(pr.edges) > 0 {
			out = append(out, pr)
		}
	}
	return out
}

func distinctRows(edges []edge) []int {
	seen := make(map[int]bool)
	var rows []int
	for _, e := range edges {
		if !seen[e.row] {
			seen[e.row] = true
			rows = append(rows, e.row)
		}
	}
	sort.Ints(rows)
	return rows
}

// solve runs the Hungarian solver on one problem.
func (pr problem) solve() ([]proposal, error) {
	rowIdx := make(map[int]int)
	colIdx := make(map[int]int)
	var rows, cols []int
	for _, e := range pr.edges {
		if _, ok := rowIdx[e.row]; !ok {
			rowIdx[e.row] = len(rows)
			rows = append(rows, e.row)
		}
		if _, ok := colIdx[e.col]; !ok {
			colIdx[e.col] = len(cols)
			cols = append(cols, e.col)
		}
	}

	w := make([][]float64, len(rows))
	for i := range w {
		w[i] = make([]float64, len(cols))
	}
	byCell := make(map[[2]int]edge, len(pr.edges))
	for _, e := range pr.edges {
		r, c := rowIdx[e.row], colIdx[e.col]
		w[r][c] = e.sim.Score
		byCell[[2]int{r, c}] = e
	}

	assign, err := SolveMax(w)
	if err != nil {
		if infeasible, ok := err.(*AssignmentInfeasibleError); ok {
			infeasible.Window = pr.window
		}
		return nil, err
	}

	out := make([]proposal, 0, len(assign))
	for r, c := range assign {
		if c < 0 {
			continue
		}
		e := byCell[[2]int{r, c}]
		out = append(out, proposal{edge: e, window: pr.window, owned: pr.owned[e.row]})
	}
	return out, nil
}

// assign solves all problems concurrently and merges their proposals into a
// one-to-one set. A row's owning window decides it first; proposals from
// windows that only see the row in their overlap margin are used for rows no
// owner assigned. Rows still free after column conflicts between windows get
// one joint solve over the free columns.
func assign(ctx context.Context, problems []problem, parallelism int) ([]edge, error) {
	results := make([][]proposal, len(problems))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range problems {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			props, err := problems[i].solve()
			if err != nil {
				return err
			}
			results[i] = props
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []proposal
	for _, props := range results {
		all = append(all, props...)
	}
	sort.SliceStable(all, func(a, b int) bool {
		x, y := all[a], all[b]
		switch {
		case x.owned != y.owned:
			return x.owned
		case x.sim.Score != y.sim.Score:
			return x.sim.Score > y.sim.Score
		case x.window != y.window:
			return x.window < y.window
		case x.row != y.row:
			return x.row < y.row
		default:
			return x.col < y.col
		}
	})

	takenRow := make(map[int]bool)
	takenCol := make(map[int]bool)
	var out []edge
	for _, pr := range all {
		if takenRow[pr.row] || takenCol[pr.col] {
			continue
		}
		takenRow[pr.row], takenCol[pr.col] = true, true
		out = append(out, pr.edge)
	}

	residual := problem{window: len(problems), owned: make(map[int]bool)}
	seen := make(map[[2]int]bool)
	for _, pr := range problems {
		for _, e := range pr.edges {
			key := [2]int{e.row, e.col}
			if takenRow[e.row] || takenCol[e.col] || seen[key] {
				continue
			}
			seen[key] = true
			residual.edges = append(residual.edges, e)
			residual.owned[e.row] = true
		}
	}
	if len(residual.edges) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	props, err := residual.solve()
	if err != nil {
		return nil, err
	}
	for _, pr := range props {
		out = append(out, pr.edge)
	}
	return out, nil
}
