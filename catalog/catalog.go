// Package catalog holds immutable particle catalogs: 3-D positions,
// optional weights, and a single-letter label. The counting engine only
// ever sees catalogs through read-only views; file ingestion lives in
// reader.go and is the CLI's concern, not the engine's.
package catalog

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientPoints rejects empty catalogs at build time.
	ErrInsufficientPoints = errors.New("catalog has no points")
	// ErrNonFinitePosition rejects NaN/Inf coordinates at build time,
	// before any traversal can see them.
	ErrNonFinitePosition = errors.New("non-finite position")
	ErrBadWeights        = errors.New("weight length mismatch")
	ErrBadLabel          = errors.New("label is not a single uppercase letter")
)

type Catalog struct {
	Label string

	// Structure-of-arrays position storage; the leaf kernels stride
	// these directly.
	X, Y, Z []float64

	// W is nil for unit weights.
	W []float64

	sumW  float64
	sumW2 float64
	min   [3]float64
	max   [3]float64
}

// New validates and wraps a point set. The slices are not copied; the
// catalog owns them afterward.
func New(label string, x, y, z, w []float64) (*Catalog, error) {
	if len(label) != 1 || label[0] < 'A' || label[0] > 'Z' {
		return nil, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("%w: catalog %s", ErrInsufficientPoints, label)
	}
	if len(y) != n || len(z) != n {
		return nil, fmt.Errorf("catalog %s: position columns disagree: %d/%d/%d",
			label, len(x), len(y), len(z))
	}
	if len(w) != 0 && len(w) != n {
		return nil, fmt.Errorf("%w: catalog %s: %d weights for %d points",
			ErrBadWeights, label, len(w), n)
	}
	if len(w) == 0 {
		w = nil
	}

	c := &Catalog{Label: label, X: x, Y: y, Z: z, W: w}
	c.min = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	c.max = [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < n; i++ {
		for ax, v := range [3]float64{x[i], y[i], z[i]} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: catalog %s point %d axis %d: %v",
					ErrNonFinitePosition, label, i, ax, v)
			}
			if v < c.min[ax] {
				c.min[ax] = v
			}
			if v > c.max[ax] {
				c.max[ax] = v
			}
		}
		wi := 1.0
		if w != nil {
			wi = w[i]
			if math.IsNaN(wi) || math.IsInf(wi, 0) {
				return nil, fmt.Errorf("%w: catalog %s weight %d: %v",
					ErrNonFinitePosition, label, i, wi)
			}
		}
		c.sumW += wi
		c.sumW2 += wi * wi
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.X) }

// Weight returns the weight of point i (1 when unweighted).
func (c *Catalog) Weight(i int) float64 {
	if c.W == nil {
		return 1
	}
	return c.W[i]
}

// SumW is the total weight; SumW2 the total squared weight. Together
// they normalize auto pair counts: sum_{i<j} w_i w_j = (SumW² - SumW2)/2.
func (c *Catalog) SumW() float64  { return c.sumW }
func (c *Catalog) SumW2() float64 { return c.sumW2 }

// Extent returns the axis-aligned bounds of the positions.
func (c *Catalog) Extent() (min, max [3]float64) { return c.min, c.max }
