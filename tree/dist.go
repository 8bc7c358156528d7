package tree

import (
	"math"

	"github.com/cosmoslab/twopt/params"
)

// MinMaxDist is the pruning oracle: a closed-form range [min, max]
// containing every pairwise distance between points owned by nodes a
// and b. Pure geometry, no traversal. Under a periodic box each axis is
// treated as a circle; where wrapping defeats a tight bound the result
// degrades conservatively (never excludes an attainable distance).
// Both nodes must come from trees built with the same kind and box.
func MinMaxDist(a, b *Node, box *Box, kind params.DataStruct) (min, max float64) {
	if kind == params.StructBallTree {
		return ballMinMax(a, b, box)
	}
	return boxMinMax(a, b, box)
}

func boxMinMax(a, b *Node, box *Box) (min, max float64) {
	var lo2, hi2 float64
	for ax := 0; ax < 3; ax++ {
		var gap, span float64
		span = math.Max(a.Max[ax]-b.Min[ax], b.Max[ax]-a.Min[ax])
		if box == nil {
			gap = math.Max(0, math.Max(a.Min[ax]-b.Max[ax], b.Min[ax]-a.Max[ax]))
		} else {
			gap = box.axisGap(a.Min[ax], a.Max[ax], b.Min[ax], b.Max[ax], ax)
			// Minimum-image distance never exceeds L/2 on an axis, and
			// never exceeds the unwrapped spread.
			span = math.Min(span, box.half[ax])
		}
		lo2 += gap * gap
		hi2 += span * span
	}
	return math.Sqrt(lo2), math.Sqrt(hi2)
}

func ballMinMax(a, b *Node, box *Box) (min, max float64) {
	var d2 float64
	for ax := 0; ax < 3; ax++ {
		d := a.Center[ax] - b.Center[ax]
		if box != nil {
			d = box.MinImage(d, ax)
		}
		d2 += d * d
	}
	d := math.Sqrt(d2)
	min = math.Max(0, d-a.R-b.R)
	max = d + a.R + b.R
	if box != nil {
		// The torus diameter caps every minimum-image distance.
		max = math.Min(max, box.MaxSeparation())
	}
	return min, max
}
