// Package paircount is the counting engine: dual-tree traversal of the
// spatial indexes in package tree, accumulating weighted pair counts
// into the bin geometry of package binning, plus the persisted table
// type those counts live in.
package paircount

import (
	"errors"
	"fmt"
	"math"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/params"
)

var (
	ErrShapeMismatch = errors.New("pair-count table shape mismatch")
	ErrBadIdent      = errors.New("bad pair identifier")
)

// Shape is the identity of a table: which pair, which scheme, which
// bins. Loaded tables are accepted only when their Shape matches the
// run configuration exactly.
type Shape struct {
	// Ident names the two catalogs, e.g. "DD", "DR". Auto pairs repeat
	// one label and count unordered pairs once.
	Ident    string
	Scheme   params.BinScheme
	NS       int // primary-axis bin count
	N2       int // secondary-axis bin count (1 for iso)
	Periodic bool
}

// ShapeOf derives the Shape a spec implies for an identifier.
func ShapeOf(ident string, spec *binning.Spec, periodic bool) Shape {
	n1, n2 := spec.Shape()
	return Shape{Ident: ident, Scheme: spec.Scheme, NS: n1, N2: n2, Periodic: periodic}
}

func (s Shape) Len() int { return s.NS * s.N2 }

func (s Shape) Equal(o Shape) bool { return s == o }

// Auto reports whether the identifier names the same catalog twice.
func (s Shape) Auto() bool {
	return len(s.Ident) == 2 && s.Ident[0] == s.Ident[1]
}

// Table is one pair count: weighted and raw accumulators per bin, flat
// row-major with the secondary axis fastest, plus the normalization
// totals the estimator divides by.
type Table struct {
	Shape

	// SEdges and PiEdges reproduce the bin geometry so a loaded table
	// is self-describing. PiEdges is nil except under the sppi scheme.
	SEdges  []float64
	PiEdges []float64
	NMu     int

	Weighted []float64
	Raw      []uint64

	// Outside tallies pairs the traversal visited but no bin accepted.
	// Raw total + OutsideRaw conserves the exact pair count.
	OutsideW   float64
	OutsideRaw uint64

	// NPoints1/2 and Norm describe the counted catalogs: point counts
	// and the total weighted pair count sum_{pairs} w_i w_j the
	// estimator normalizes by.
	NPoints1, NPoints2 uint64
	Norm               float64
}

// NewTable allocates a zeroed table for a shape and spec.
func NewTable(shape Shape, spec *binning.Spec) *Table {
	t := &Table{
		Shape:    shape,
		SEdges:   append([]float64(nil), spec.S.Edges...),
		NMu:      spec.NMu,
		Weighted: make([]float64, shape.Len()),
		Raw:      make([]uint64, shape.Len()),
	}
	if spec.Scheme == params.BinSpPi {
		t.PiEdges = append([]float64(nil), spec.Pi.Edges...)
	}
	return t
}

// TotalRaw sums the raw counts over all bins.
func (t *Table) TotalRaw() uint64 {
	var n uint64
	for _, r := range t.Raw {
		n += r
	}
	return n
}

// TotalWeighted sums the weighted counts over all bins.
func (t *Table) TotalWeighted() float64 {
	var w float64
	for _, v := range t.Weighted {
		w += v
	}
	return w
}

// Normalized returns Weighted/Norm per bin: the fraction of all
// weighted pairs landing in each bin.
func (t *Table) Normalized() []float64 {
	out := make([]float64, len(t.Weighted))
	if t.Norm == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i, w := range t.Weighted {
		out[i] = w / t.Norm
	}
	return out
}

// Merge sums other into t: the all-reduce step combining per-rank (or
// per-worker) results. Shapes and normalization must agree exactly.
func (t *Table) Merge(other *Table) error {
	if !t.Shape.Equal(other.Shape) {
		return fmt.Errorf("%w: %+v vs %+v", ErrShapeMismatch, t.Shape, other.Shape)
	}
	if t.NPoints1 != other.NPoints1 || t.NPoints2 != other.NPoints2 || t.Norm != other.Norm {
		return fmt.Errorf("%w: %s: differing catalog totals", ErrShapeMismatch, t.Ident)
	}
	for i := range t.Weighted {
		t.Weighted[i] += other.Weighted[i]
		t.Raw[i] += other.Raw[i]
	}
	t.OutsideW += other.OutsideW
	t.OutsideRaw += other.OutsideRaw
	return nil
}

// ValidIdent checks the two-uppercase-letter form.
func ValidIdent(ident string) error {
	if len(ident) != 2 || ident[0] < 'A' || ident[0] > 'Z' || ident[1] < 'A' || ident[1] > 'Z' {
		return fmt.Errorf("%w: %q", ErrBadIdent, ident)
	}
	return nil
}
