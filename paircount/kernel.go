package paircount

import (
	"math"
	"sort"

	"github.com/cosmoslab/twopt/params"
	"github.com/cosmoslab/twopt/tree"
)

// findBinSq bins a squared separation against squared edges, same
// convention as binning.Axis.FindBin: lower-inclusive half-open bins,
// last bin closed on top, -1 outside.
func findBinSq(edges2 []float64, d2 float64) int {
	last := len(edges2) - 1
	if d2 < edges2[0] || d2 > edges2[last] {
		return -1
	}
	if d2 == edges2[last] {
		return last - 1
	}
	i := sort.SearchFloat64s(edges2, d2)
	if i < len(edges2) && edges2[i] == d2 {
		return i
	}
	return i - 1
}

// leafPairs runs the point-pair kernel for a pair of leaves. The loops
// stride the trees' flat coordinate arrays directly; distances stay
// squared until a scheme needs the root.
func (c *counter) leafPairs(na, nb *tree.Node, h *hist) {
	same := c.auto && na.Start == nb.Start

	xa, ya, za := c.ta.X, c.ta.Y, c.ta.Z
	xb, yb, zb := c.tb.X, c.tb.Y, c.tb.Z

	var pairs int64
	for i := na.Start; i < na.End; i++ {
		xi, yi, zi := xa[i], ya[i], za[i]
		wi := c.ta.Weight(i)

		j0 := nb.Start
		if same {
			j0 = i + 1
		}
		for j := j0; j < nb.End; j++ {
			dx := xb[j] - xi
			dy := yb[j] - yi
			dz := zb[j] - zi
			if c.box != nil {
				dx = c.box.MinImage(dx, 0)
				dy = c.box.MinImage(dy, 1)
				dz = c.box.MinImage(dz, 2)
			}
			d2 := dx*dx + dy*dy + dz*dz
			w := wi * c.tb.Weight(j)
			pairs++

			cell := -1
			switch c.spec.Scheme {
			case params.BinIso:
				cell = findBinSq(c.sEdges2, d2)
			case params.BinSMu:
				cell = c.smuCell(xi, yi, zi, dx, dy, dz, d2)
			case params.BinSpPi:
				cell = c.sppiCell(xi, yi, zi, dx, dy, dz, d2)
			}
			if cell < 0 {
				h.outW += w
				h.outRaw++
				continue
			}
			h.w[cell] += w
			h.raw[cell]++
		}
	}
	if c.meter != nil && pairs > 0 {
		c.meter.mark(pairs)
	}
}

// smuCell bins (s, |mu|). Periodic boxes take the z axis as the line
// of sight; open geometry uses the pair midpoint direction.
func (c *counter) smuCell(xi, yi, zi, dx, dy, dz, d2 float64) int {
	sbin := findBinSq(c.sEdges2, d2)
	if sbin < 0 {
		return -1
	}
	if d2 == 0 {
		// Coincident points have no direction; only the isotropic
		// scheme can place them.
		return -1
	}
	s := math.Sqrt(d2)
	var mu float64
	if c.box != nil {
		mu = math.Abs(dz) / s
	} else {
		hx := xi + 0.5*dx
		hy := yi + 0.5*dy
		hz := zi + 0.5*dz
		hn := math.Sqrt(hx*hx + hy*hy + hz*hz)
		if hn == 0 {
			return -1
		}
		mu = math.Abs(dx*hx+dy*hy+dz*hz) / (s * hn)
	}
	if mu > 1 {
		// Roundoff on pairs along the line of sight.
		mu = 1
	}
	mubin := c.spec.MuBin(mu)
	if mubin < 0 {
		return -1
	}
	return sbin*c.nmu + mubin
}

// sppiCell bins (s_perp, pi).
func (c *counter) sppiCell(xi, yi, zi, dx, dy, dz, d2 float64) int {
	var pi, sp2 float64
	if c.box != nil {
		pi = dz
		sp2 = dx*dx + dy*dy
	} else {
		hx := xi + 0.5*dx
		hy := yi + 0.5*dy
		hz := zi + 0.5*dz
		hn := math.Sqrt(hx*hx + hy*hy + hz*hz)
		if hn == 0 {
			return -1
		}
		pi = (dx*hx + dy*hy + dz*hz) / hn
		sp2 = d2 - pi*pi
		if sp2 < 0 {
			sp2 = 0
		}
	}
	if !c.spec.SignedPi {
		pi = math.Abs(pi)
	}
	pbin := c.spec.Pi.FindBin(pi)
	if pbin < 0 {
		return -1
	}
	spbin := findBinSq(c.sEdges2, sp2)
	if spbin < 0 {
		return -1
	}
	return spbin*c.npi + pbin
}
