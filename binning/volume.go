package binning

import (
	"math"

	"github.com/cosmoslab/twopt/params"
)

// CellVolumes returns the geometric volume of every bin cell, flat
// row-major, axis 2 fastest. This is the volume swept by the separation
// vector: spherical shells for the isotropic scheme, shells split
// uniformly over |mu| for smu, and annular cylinders for sppi. The
// analytic random-random term divides these by the box volume.
func (s *Spec) CellVolumes() []float64 {
	out := make([]float64, s.FlatLen())
	switch s.Scheme {
	case params.BinIso:
		for i := 0; i < s.S.N(); i++ {
			out[i] = shellVolume(s.S.Edges[i], s.S.Edges[i+1])
		}
	case params.BinSMu:
		// |mu| is uniform over [0, 1] for isotropic pair orientations,
		// so each mu bin takes an equal share of the shell.
		frac := 1.0 / float64(s.NMu)
		for i := 0; i < s.S.N(); i++ {
			v := shellVolume(s.S.Edges[i], s.S.Edges[i+1]) * frac
			for j := 0; j < s.NMu; j++ {
				out[s.Cell(i, j)] = v
			}
		}
	case params.BinSpPi:
		// Annulus area times pi-bin height; doubled for absolute-value
		// pi, which folds both line-of-sight signs into one cell.
		fold := 2.0
		if s.SignedPi {
			fold = 1.0
		}
		for i := 0; i < s.S.N(); i++ {
			area := math.Pi * (s.S.Edges[i+1]*s.S.Edges[i+1] - s.S.Edges[i]*s.S.Edges[i])
			for j := 0; j < s.Pi.N(); j++ {
				out[s.Cell(i, j)] = fold * area * s.Pi.Width(j)
			}
		}
	}
	return out
}

func shellVolume(r0, r1 float64) float64 {
	return (4.0 / 3.0) * math.Pi * (r1*r1*r1 - r0*r0*r0)
}
