// Package binning defines the bin geometry pair counts accumulate into:
// one or two strictly increasing edge axes plus the uniform mu axis of
// the (s, mu) scheme. Bin membership is lower-bound inclusive, half
// open, with the global last bin closed on top.
package binning

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cosmoslab/twopt/params"
)

var ErrBadAxis = errors.New("invalid bin axis")

// Axis is one strictly increasing sequence of bin edges.
type Axis struct {
	Edges []float64
}

// NewLinearAxis builds edges [min, min+step, ..., max]. The final step
// is shortened to land exactly on max when step does not divide the
// range evenly.
func NewLinearAxis(min, max, step float64) (Axis, error) {
	if !(max > min) || step <= 0 {
		return Axis{}, fmt.Errorf("%w: range [%v, %v] step %v", ErrBadAxis, min, max, step)
	}
	n := int(math.Ceil((max - min) / step))
	edges := make([]float64, 0, n+1)
	for i := 0; i < n; i++ {
		edges = append(edges, min+float64(i)*step)
	}
	edges = append(edges, max)
	return NewEdgesAxis(edges)
}

// NewEdgesAxis wraps caller-supplied edges, validating monotonicity and
// finiteness. The edges slice is not copied; callers hand over
// ownership.
func NewEdgesAxis(edges []float64) (Axis, error) {
	if len(edges) < 2 {
		return Axis{}, fmt.Errorf("%w: %d edges", ErrBadAxis, len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return Axis{}, fmt.Errorf("%w: non-finite edge %v at %d", ErrBadAxis, e, i)
		}
		if i > 0 && e <= edges[i-1] {
			return Axis{}, fmt.Errorf("%w: edges not strictly increasing at %d", ErrBadAxis, i)
		}
	}
	return Axis{Edges: edges}, nil
}

func (a Axis) N() int          { return len(a.Edges) - 1 }
func (a Axis) Min() float64    { return a.Edges[0] }
func (a Axis) Max() float64    { return a.Edges[len(a.Edges)-1] }
func (a Axis) Width(i int) float64 {
	return a.Edges[i+1] - a.Edges[i]
}

// Centers returns the bin midpoints.
func (a Axis) Centers() []float64 {
	c := make([]float64, a.N())
	for i := range c {
		c[i] = 0.5 * (a.Edges[i] + a.Edges[i+1])
	}
	return c
}

// FindBin locates x. A value equal to an internal edge lands in the
// upper bin; a value equal to the last edge lands in the last bin;
// anything outside [Min, Max] returns -1.
func (a Axis) FindBin(x float64) int {
	last := len(a.Edges) - 1
	if x < a.Edges[0] || x > a.Edges[last] {
		return -1
	}
	if x == a.Edges[last] {
		return last - 1
	}
	i := sort.SearchFloat64s(a.Edges, x)
	if i < len(a.Edges) && a.Edges[i] == x {
		return i
	}
	return i - 1
}

// SquaredEdges returns the edges squared, for kernels that bin on
// squared separations without taking roots. Valid only for
// non-negative axes.
func (a Axis) SquaredEdges() []float64 {
	sq := make([]float64, len(a.Edges))
	for i, e := range a.Edges {
		sq[i] = e * e
	}
	return sq
}

// Spec is the full bin geometry of one run: the scheme, the primary
// distance axis (s, or s_perp for the sppi scheme), and the secondary
// axis where the scheme has one.
type Spec struct {
	Scheme params.BinScheme

	// S is the separation axis (s_perp under BinSpPi).
	S Axis

	// NMu partitions |mu| in [0, 1] uniformly; BinSMu only.
	NMu int
	// MuOneInclusive counts pairs at exactly mu = 1 in the last mu bin.
	MuOneInclusive bool

	// Pi is the line-of-sight axis; BinSpPi only.
	Pi Axis
	// SignedPi bins pi with sign instead of absolute value.
	SignedPi bool
}

// FromConfig assembles the Spec a validated Config describes.
func FromConfig(c *params.Config) (*Spec, error) {
	var s Axis
	var err error
	if len(c.SepEdges) > 0 {
		s, err = NewEdgesAxis(c.SepEdges)
	} else {
		s, err = NewLinearAxis(c.SepMin, c.SepMax, c.SepStep)
	}
	if err != nil {
		return nil, fmt.Errorf("separation axis: %w", err)
	}
	spec := &Spec{
		Scheme:         c.BinScheme,
		S:              s,
		MuOneInclusive: !c.MuOneExclusive,
		SignedPi:       c.SignedPi,
	}
	switch c.BinScheme {
	case params.BinSMu:
		spec.NMu = c.MuBins
	case params.BinSpPi:
		var pi Axis
		if len(c.PiEdges) > 0 {
			pi, err = NewEdgesAxis(c.PiEdges)
		} else {
			pi, err = NewLinearAxis(c.PiMin, c.PiMax, c.PiStep)
		}
		if err != nil {
			return nil, fmt.Errorf("pi axis: %w", err)
		}
		spec.Pi = pi
	}
	return spec, nil
}

// Shape returns the bin counts per axis; n2 is 1 for the isotropic
// scheme.
func (s *Spec) Shape() (n1, n2 int) {
	n1 = s.S.N()
	n2 = 1
	switch s.Scheme {
	case params.BinSMu:
		n2 = s.NMu
	case params.BinSpPi:
		n2 = s.Pi.N()
	}
	return n1, n2
}

// FlatLen is the total cell count, row-major with axis 2 fastest.
func (s *Spec) FlatLen() int {
	n1, n2 := s.Shape()
	return n1 * n2
}

// Cell flattens a 2-D bin address. i indexes the primary axis.
func (s *Spec) Cell(i, j int) int {
	_, n2 := s.Shape()
	return i*n2 + j
}

// MuBin locates |mu| in the uniform mu partition, or -1 when the value
// falls outside (only possible at mu = 1 under the exclusive policy).
func (s *Spec) MuBin(mu float64) int {
	if mu < 0 {
		mu = -mu
	}
	if mu > 1 {
		return -1
	}
	if mu == 1 {
		if s.MuOneInclusive {
			return s.NMu - 1
		}
		return -1
	}
	return int(mu * float64(s.NMu))
}

// MuCenters returns the mu bin midpoints.
func (s *Spec) MuCenters() []float64 {
	c := make([]float64, s.NMu)
	d := 1.0 / float64(s.NMu)
	for i := range c {
		c[i] = (float64(i) + 0.5) * d
	}
	return c
}
