// Package tree builds the spatial indexes pair counting traverses:
// a k-d tree (axis-aligned box bounds) or a ball tree (center+radius
// bounds) over one catalog. Nodes live in a flat arena addressed by
// index, each owning a contiguous range of a points permutation, so a
// built tree is plain read-only data shared freely across workers.
package tree

import (
	"fmt"
	"math"

	"github.com/cosmoslab/twopt/catalog"
	"github.com/cosmoslab/twopt/params"
)

const noChild = -1

type Node struct {
	// [Start, End) indexes the permuted point arrays.
	Start, End int

	Left, Right int32

	// Axis-aligned bounds; always populated, also backing the k-d
	// pruning formulas.
	Min, Max [3]float64

	// Bounding sphere; populated for ball trees.
	Center [3]float64
	R      float64

	// Weight totals over the owned range; the cell-approximation path
	// accumulates these without visiting points.
	SumW  float64
	SumW2 float64
}

func (n *Node) Size() int    { return n.End - n.Start }
func (n *Node) IsLeaf() bool { return n.Left == noChild }

type Tree struct {
	Kind params.DataStruct
	Box  *Box // nil for open geometry

	Nodes []Node
	// Idx maps tree order back to catalog order.
	Idx []int

	// Permuted, box-folded coordinate and weight arrays the leaf
	// kernels stride. W is nil for unit weights.
	X, Y, Z, W []float64

	Label    string
	LeafSize int
}

// Build indexes a catalog. The catalog is not modified; positions are
// copied once into tree order (folded into the box when periodic).
func Build(cat *catalog.Catalog, kind params.DataStruct, box *Box, leafSize int) (*Tree, error) {
	n := cat.Len()
	if n == 0 {
		return nil, fmt.Errorf("build %s tree: %w", kind, catalog.ErrInsufficientPoints)
	}
	if leafSize < 1 {
		leafSize = params.DefaultLeafSize
	}

	t := &Tree{
		Kind:     kind,
		Box:      box,
		Idx:      make([]int, n),
		X:        make([]float64, n),
		Y:        make([]float64, n),
		Z:        make([]float64, n),
		Label:    cat.Label,
		LeafSize: leafSize,
	}
	copy(t.X, cat.X)
	copy(t.Y, cat.Y)
	copy(t.Z, cat.Z)
	if cat.W != nil {
		t.W = make([]float64, n)
		copy(t.W, cat.W)
	}
	if box != nil {
		for i := 0; i < n; i++ {
			t.X[i] = box.Fold(t.X[i], 0)
			t.Y[i] = box.Fold(t.Y[i], 1)
			t.Z[i] = box.Fold(t.Z[i], 2)
		}
	}
	for i := range t.Idx {
		t.Idx[i] = i
	}

	// Balanced median splits: ~2n/leafSize nodes.
	t.Nodes = make([]Node, 0, 2*(n/leafSize+1))
	t.buildRange(0, n)
	return t, nil
}

// buildRange appends the subtree over [start, end) and returns its
// node index. Children are appended after their parent, so the arena
// is in pre-order with root at 0.
func (t *Tree) buildRange(start, end int) int32 {
	id := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Start: start, End: end, Left: noChild, Right: noChild})
	t.bound(id)

	if end-start <= t.LeafSize {
		return id
	}

	n := &t.Nodes[id]
	ax := widestAxis(n.Min, n.Max)
	mid := (start + end) / 2
	t.selectNth(start, end, mid, ax)

	left := t.buildRange(start, mid)
	right := t.buildRange(mid, end)
	// n may be stale after arena growth.
	t.Nodes[id].Left = left
	t.Nodes[id].Right = right
	return id
}

// bound fills the bounding volume of node id from its points.
func (t *Tree) bound(id int32) {
	n := &t.Nodes[id]
	n.Min = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	n.Max = [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := n.Start; i < n.End; i++ {
		for ax, v := range [3]float64{t.X[i], t.Y[i], t.Z[i]} {
			if v < n.Min[ax] {
				n.Min[ax] = v
			}
			if v > n.Max[ax] {
				n.Max[ax] = v
			}
		}
		w := 1.0
		if t.W != nil {
			w = t.W[i]
		}
		n.SumW += w
		n.SumW2 += w * w
	}
	if t.Kind != params.StructBallTree {
		return
	}
	for ax := 0; ax < 3; ax++ {
		n.Center[ax] = 0.5 * (n.Min[ax] + n.Max[ax])
	}
	r2 := 0.0
	for i := n.Start; i < n.End; i++ {
		dx := t.X[i] - n.Center[0]
		dy := t.Y[i] - n.Center[1]
		dz := t.Z[i] - n.Center[2]
		d2 := dx*dx + dy*dy + dz*dz
		if d2 > r2 {
			r2 = d2
		}
	}
	n.R = math.Sqrt(r2)
}

func widestAxis(min, max [3]float64) int {
	ax, spread := 0, max[0]-min[0]
	for a := 1; a < 3; a++ {
		if s := max[a] - min[a]; s > spread {
			ax, spread = a, s
		}
	}
	return ax
}

// Root returns the root node; valid on any built tree.
func (t *Tree) Root() *Node { return &t.Nodes[0] }

// Len is the indexed point count.
func (t *Tree) Len() int { return len(t.X) }

// Weight returns the (permuted-order) weight of point i.
func (t *Tree) Weight(i int) float64 {
	if t.W == nil {
		return 1
	}
	return t.W[i]
}

func (t *Tree) coord(i, ax int) float64 {
	switch ax {
	case 0:
		return t.X[i]
	case 1:
		return t.Y[i]
	}
	return t.Z[i]
}

func (t *Tree) swap(i, j int) {
	t.X[i], t.X[j] = t.X[j], t.X[i]
	t.Y[i], t.Y[j] = t.Y[j], t.Y[i]
	t.Z[i], t.Z[j] = t.Z[j], t.Z[i]
	if t.W != nil {
		t.W[i], t.W[j] = t.W[j], t.W[i]
	}
	t.Idx[i], t.Idx[j] = t.Idx[j], t.Idx[i]
}

// selectNth partially sorts [start, end) on axis ax so the element at
// nth is in sorted position (quickselect, median-of-three pivot).
func (t *Tree) selectNth(start, end, nth, ax int) {
	for end-start > 1 {
		pivot := t.medianOfThree(start, end, ax)
		lo, hi := start, end-1
		for lo <= hi {
			for t.coord(lo, ax) < pivot {
				lo++
			}
			for t.coord(hi, ax) > pivot {
				hi--
			}
			if lo <= hi {
				t.swap(lo, hi)
				lo++
				hi--
			}
		}
		switch {
		case nth <= hi:
			end = hi + 1
		case nth >= lo:
			start = lo
		default:
			return
		}
	}
}

func (t *Tree) medianOfThree(start, end, ax int) float64 {
	a := t.coord(start, ax)
	b := t.coord((start+end)/2, ax)
	c := t.coord(end-1, ax)
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}
