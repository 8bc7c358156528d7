package cf

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/paircount"
	"github.com/cosmoslab/twopt/params"
	"github.com/cosmoslab/twopt/tree"
)

var nan64 = math.NaN()

// Result is one evaluated correlation function over the run's bin
// geometry, flat row-major like the tables it came from.
type Result struct {
	Expr   string
	Spec   *binning.Spec
	Xi     []float64
	// NaNBins counts bins poisoned by a zero denominator; the run
	// continues, the caller decides what to make of them.
	NaNBins int
}

// Evaluate resolves every operand of expr against tables (normalized
// per-bin pair fractions) and evaluates the arithmetic bin-by-bin.
// The analytic-RR operand needs the periodic box; referencing it
// without one is a configuration error.
func Evaluate(expr *Expr, tables map[string]*paircount.Table, spec *binning.Spec, box *tree.Box) (*Result, error) {
	env := make(map[string][]float64, len(expr.Operands()))
	for _, op := range expr.Operands() {
		if op == params.AnalyticRR {
			rr, err := AnalyticRR(spec, box)
			if err != nil {
				return nil, err
			}
			env[op] = rr
			continue
		}
		t, ok := tables[op]
		if !ok {
			return nil, fmt.Errorf("%w: %q: pair count %s was not computed",
				ErrBadExpr, expr.Src, op)
		}
		if t.Len() != spec.FlatLen() {
			return nil, fmt.Errorf("%w: table %s has %d bins, spec has %d",
				paircount.ErrShapeMismatch, op, t.Len(), spec.FlatLen())
		}
		env[op] = t.Normalized()
	}

	nanBins := 0
	v, err := expr.eval(expr.root, env, &nanBins)
	if err != nil {
		return nil, err
	}
	xi := v.vector
	if xi == nil {
		// A constant expression; broadcast it.
		xi = make([]float64, spec.FlatLen())
		for i := range xi {
			xi[i] = v.scalar
		}
	}
	if nanBins > 0 {
		slog.Warn("Zero-weight denominator bins in estimator",
			"expr", expr.Src, "bins", nanBins)
	}
	return &Result{Expr: expr.Src, Spec: spec, Xi: xi, NaNBins: nanBins}, nil
}

// AnalyticRR is the expected normalized random-random count per bin for
// a uniform catalog in a periodic box: each bin's separation-space
// volume over the box volume. Point counts cancel in the
// normalization, so none are needed. Only valid without boundary
// corrections, which is exactly the periodic-box case.
func AnalyticRR(spec *binning.Spec, box *tree.Box) ([]float64, error) {
	if box == nil {
		return nil, fmt.Errorf("%w: analytic RR requires a periodic box", params.ErrConfig)
	}
	vols := spec.CellVolumes()
	vbox := box.Volume()
	out := make([]float64, len(vols))
	for i, v := range vols {
		out[i] = v / vbox
	}
	return out, nil
}
