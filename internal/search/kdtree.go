package search

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Point is a location in the 3-D search space.
type Point [3]float64

// entry is a point stored in the tree with its position in the input.
type entry struct {
	p   Point
	idx int
}

func (e entry) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return e.p[d] - c.(entry).p[d]
}

func (e entry) Dims() int {
	return len(e.p)
}

// Distance is the squared Euclidean distance, like kdtree.Point.
func (e entry) Distance(c kdtree.Comparable) float64 {
	q := c.(entry)
	var sum float64
	for k := range e.p {
		d := e.p[k] - q.p[k]
		sum += d * d
	}
	return sum
}

type entries []entry

func (es entries) Index(i int) kdtree.Comparable { return es[i] }
func (es entries) Len() int                      { return len(es) }
func (es entries) Slice(start, end int) kdtree.Interface {
	return es[start:end]
}

func (es entries) Pivot(d kdtree.Dim) int {
	pl := plane{entries: es, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane orders entries along one dimension for pivot selection.
type plane struct {
	entries
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.entries[i].p[p.dim] < p.entries[j].p[p.dim] }
func (p plane) Swap(i, j int)      { p.entries[i], p.entries[j] = p.entries[j], p.entries[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{entries: p.entries[start:end], dim: p.dim}
}

// Tree is a static 3-d tree answering radius queries.
type Tree struct {
	tree *kdtree.Tree
	n    int
}

// NewTree builds a tree over points. The slice is copied.
func NewTree(points []Point) *Tree {
	t := &Tree{n: len(points)}
	if len(points) == 0 {
		return t
	}
	es := make(entries, len(points))
	for i, p := range points {
		es[i] = entry{p: p, idx: i}
	}
	t.tree = kdtree.New(es, false)
	return t
}

// Len is the number of indexed points.
func (t *Tree) Len() int {
	return t.n
}

// Within returns the indices of the points at Euclidean distance at most r
// from q, in ascending order.
func (t *Tree) Within(q Point, r float64) []int {
	if t.tree == nil {
		return nil
	}
	keep := kdtree.NewDistKeeper(r * r)
	t.tree.NearestSet(keep, entry{p: q, idx: -1})

	out := make([]int, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd.Comparable.(entry).idx)
	}
	sort.Ints(out)
	return out
}
