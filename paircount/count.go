package paircount

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/params"
	"github.com/cosmoslab/twopt/tree"
)

// Options tune one count. Zero values fall back to sane defaults.
type Options struct {
	// Workers sizes the thread pool (default NumCPU).
	Workers int
	// CellApproxSize is the node-size ceiling for whole-cell
	// accumulation on the isotropic scheme; 0 uses the default,
	// negative disables the approximation.
	CellApproxSize int
	// MeterInterval spaces progress log lines; 0 disables the meter.
	MeterInterval time.Duration
}

type unit struct{ a, b int32 }

type hist struct {
	w      []float64
	raw    []uint64
	outW   float64
	outRaw uint64
}

func newHist(n int) *hist {
	return &hist{w: make([]float64, n), raw: make([]uint64, n)}
}

type counter struct {
	ta, tb *tree.Tree
	auto   bool
	box    *tree.Box
	kind   params.DataStruct
	spec   *binning.Spec

	// Squared separation edges; the kernels bin squared distances
	// without taking roots.
	sEdges2 []float64
	// Attainable-distance window for pruning.
	rmin, rmax float64

	nmu    int
	npi    int
	approx int

	meter *pairMeter
}

// Count runs one dual-tree pair count. For an auto identifier pass the
// same tree twice; unordered pairs are counted once and zero-separation
// self pairs never counted.
func Count(ta, tb *tree.Tree, ident string, spec *binning.Spec, opt Options) (*Table, error) {
	if err := ValidIdent(ident); err != nil {
		return nil, err
	}
	auto := ta == tb
	if auto != (ident[0] == ident[1]) {
		return nil, fmt.Errorf("%w: %q does not match its catalogs (%s, %s)",
			ErrBadIdent, ident, ta.Label, tb.Label)
	}
	if ta.Kind != tb.Kind || (ta.Box == nil) != (tb.Box == nil) {
		return nil, fmt.Errorf("count %s: trees disagree on structure or geometry", ident)
	}

	workers := opt.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	approx := opt.CellApproxSize
	if approx == 0 {
		approx = params.DefaultCellApproxSize
	}

	c := &counter{
		ta:      ta,
		tb:      tb,
		auto:    auto,
		box:     ta.Box,
		kind:    ta.Kind,
		spec:    spec,
		sEdges2: spec.S.SquaredEdges(),
		nmu:     spec.NMu,
		approx:  approx,
	}
	c.rmin, c.rmax = pruneWindow(spec)
	if spec.Scheme == params.BinSpPi {
		c.npi = spec.Pi.N()
	}
	if opt.MeterInterval > 0 {
		c.meter = newPairMeter(ident, opt.MeterInterval)
		defer c.meter.stop()
	}

	shape := ShapeOf(ident, spec, c.box != nil)
	table := NewTable(shape, spec)
	table.NPoints1 = uint64(ta.Len())
	table.NPoints2 = uint64(tb.Len())
	if auto {
		sw, sw2 := ta.Root().SumW, ta.Root().SumW2
		table.Norm = (sw*sw - sw2) / 2
	} else {
		table.Norm = ta.Root().SumW * tb.Root().SumW
	}

	units := c.frontier(workers * 16)

	work := make(chan unit)
	done := make(chan *hist, workers)
	for w := 0; w < workers; w++ {
		go func() {
			h := newHist(shape.Len())
			for u := range work {
				c.visit(u.a, u.b, h)
			}
			done <- h
		}()
	}
	for _, u := range units {
		work <- u
	}
	close(work)

	// Pairwise-sum reduction; associative and commutative, so worker
	// completion order only moves rounding noise.
	for w := 0; w < workers; w++ {
		h := <-done
		for i := range h.w {
			table.Weighted[i] += h.w[i]
			table.Raw[i] += h.raw[i]
		}
		table.OutsideW += h.outW
		table.OutsideRaw += h.outRaw
	}
	return table, nil
}

// pruneWindow returns the [rmin, rmax] total-separation window outside
// which no pair can land in any bin.
func pruneWindow(spec *binning.Spec) (rmin, rmax float64) {
	switch spec.Scheme {
	case params.BinSpPi:
		piLo, piHi := absRange(spec.Pi.Min(), spec.Pi.Max())
		rmin = math.Hypot(spec.S.Min(), piLo)
		rmax = math.Hypot(spec.S.Max(), piHi)
	default:
		rmin, rmax = spec.S.Min(), spec.S.Max()
	}
	return rmin, rmax
}

// absRange maps an interval to the range of its absolute values.
func absRange(lo, hi float64) (alo, ahi float64) {
	if lo <= 0 && hi >= 0 {
		alo = 0
	} else {
		alo = math.Min(math.Abs(lo), math.Abs(hi))
	}
	return alo, math.Max(math.Abs(lo), math.Abs(hi))
}

// frontier expands the top of the recursion into at least target
// independent node-pair units (when the trees are deep enough), each a
// schedulable unit for the worker pool.
func (c *counter) frontier(target int) []unit {
	queue := []unit{{0, 0}}
	var leaves []unit
	for len(queue)+len(leaves) < target && len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		na, nb := &c.ta.Nodes[u.a], &c.tb.Nodes[u.b]
		if na.IsLeaf() && nb.IsLeaf() {
			leaves = append(leaves, u)
			continue
		}
		queue = append(queue, c.expand(u, na, nb)...)
	}
	return append(leaves, queue...)
}

// expand splits a unit into child units, preserving the j > i ordering
// of auto pairs: a self unit (n, n) yields (l, l), (l, r), (r, r).
func (c *counter) expand(u unit, na, nb *tree.Node) []unit {
	if c.auto && u.a == u.b {
		return []unit{{na.Left, na.Left}, {na.Left, na.Right}, {na.Right, na.Right}}
	}
	// Split the larger side; a leaf forces the other.
	if na.Size() >= nb.Size() && !na.IsLeaf() || nb.IsLeaf() {
		return []unit{{na.Left, u.b}, {na.Right, u.b}}
	}
	return []unit{{u.a, nb.Left}, {u.a, nb.Right}}
}

// pairTotal is the raw and weighted pair count of a node pair, used
// when a whole subtree pair is decided at once (prune or cell
// approximation).
func (c *counter) pairTotal(a, b int32, na, nb *tree.Node) (w float64, raw uint64) {
	if c.auto && a == b {
		n := uint64(na.Size())
		return (na.SumW*na.SumW - na.SumW2) / 2, n * (n - 1) / 2
	}
	return na.SumW * nb.SumW, uint64(na.Size()) * uint64(nb.Size())
}

// visit is the dual-tree recursion.
func (c *counter) visit(a, b int32, h *hist) {
	na, nb := &c.ta.Nodes[a], &c.tb.Nodes[b]

	min, max := tree.MinMaxDist(na, nb, c.box, c.kind)
	if min > c.rmax || max < c.rmin {
		w, raw := c.pairTotal(a, b, na, nb)
		h.outW += w
		h.outRaw += raw
		if c.meter != nil {
			c.meter.mark(int64(raw))
		}
		return
	}

	// Cell approximation: the whole node pair provably lands in one
	// isotropic bin. Angular schemes always descend, since the angle
	// is not uniform across a cell.
	if c.spec.Scheme == params.BinIso && c.approx > 0 &&
		na.Size() <= c.approx && nb.Size() <= c.approx {
		if lo := c.spec.S.FindBin(min); lo >= 0 && lo == c.spec.S.FindBin(max) {
			w, raw := c.pairTotal(a, b, na, nb)
			h.w[lo] += w
			h.raw[lo] += raw
			if c.meter != nil {
				c.meter.mark(int64(raw))
			}
			return
		}
	}

	if na.IsLeaf() && nb.IsLeaf() {
		c.leafPairs(na, nb, h)
		return
	}

	if c.auto && a == b {
		c.visit(na.Left, na.Left, h)
		c.visit(na.Left, na.Right, h)
		c.visit(na.Right, na.Right, h)
		return
	}
	if na.Size() >= nb.Size() && !na.IsLeaf() || nb.IsLeaf() {
		c.visit(na.Left, b, h)
		c.visit(na.Right, b, h)
		return
	}
	c.visit(a, nb.Left, h)
	c.visit(a, nb.Right, h)
}
