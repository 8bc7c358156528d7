package tree

import (
	"errors"
	"fmt"
	"math"
)

var ErrBadBox = errors.New("invalid box")

// Box is a periodic rectangular volume. Separations inside a Box use
// the minimum-image convention: each axis folds into [-L/2, +L/2].
type Box struct {
	L    [3]float64
	half [3]float64
}

func NewBox(sides []float64) (*Box, error) {
	if len(sides) != 3 {
		return nil, fmt.Errorf("%w: want 3 side lengths, got %d", ErrBadBox, len(sides))
	}
	b := &Box{}
	for i, s := range sides {
		if !(s > 0) || math.IsInf(s, 0) || math.IsNaN(s) {
			return nil, fmt.Errorf("%w: side %d = %v", ErrBadBox, i, s)
		}
		b.L[i] = s
		b.half[i] = s / 2
	}
	return b, nil
}

// Volume of the box.
func (b *Box) Volume() float64 {
	return b.L[0] * b.L[1] * b.L[2]
}

// MinImage folds a coordinate delta on axis ax into [-L/2, +L/2].
func (b *Box) MinImage(d float64, ax int) float64 {
	if d > b.half[ax] {
		d -= b.L[ax]
	} else if d < -b.half[ax] {
		d += b.L[ax]
	}
	return d
}

// Fold maps a coordinate on axis ax into [0, L).
func (b *Box) Fold(x float64, ax int) float64 {
	x = math.Mod(x, b.L[ax])
	if x < 0 {
		x += b.L[ax]
	}
	return x
}

// MaxSeparation is the largest minimum-image distance the box admits.
func (b *Box) MaxSeparation() float64 {
	return math.Sqrt(b.half[0]*b.half[0] + b.half[1]*b.half[1] + b.half[2]*b.half[2])
}

// axisGap is the minimal circular distance between intervals
// [a0, a1] and [b0, b1] on a circle of circumference L. Intervals are
// assumed folded into [0, L).
func (b *Box) axisGap(a0, a1, b0, b1 float64, ax int) float64 {
	if a0 <= b1 && b0 <= a1 {
		return 0
	}
	d1 := math.Mod(b0-a1+b.L[ax], b.L[ax])
	d2 := math.Mod(a0-b1+b.L[ax], b.L[ax])
	return math.Min(d1, d2)
}
