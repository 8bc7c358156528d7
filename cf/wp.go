package cf

import (
	"fmt"

	"github.com/cosmoslab/twopt/params"
)

// ProjectedCF integrates an (s_perp, pi) correlation function along the
// line of sight:
//
//	wp(s_perp) = 2 * sum_j xi(s_perp, pi_j) * dpi_j
//
// The doubling folds in the negative-pi half when the pi axis was built
// on absolute values. A signed axis already covers both signs, so its
// sum is taken as-is; whether a signed axis may assume line-of-sight
// symmetry is the caller's configuration, not a default here.
func ProjectedCF(res *Result) ([]float64, error) {
	if res.Spec.Scheme != params.BinSpPi {
		return nil, fmt.Errorf("%w: projected CF requires the sppi scheme, have %s",
			params.ErrConfig, res.Spec.Scheme)
	}
	nsp, npi := res.Spec.Shape()
	fold := 2.0
	if res.Spec.SignedPi {
		fold = 1.0
	}
	wp := make([]float64, nsp)
	for i := 0; i < nsp; i++ {
		var sum float64
		base := i * npi
		for j := 0; j < npi; j++ {
			sum += res.Xi[base+j] * res.Spec.Pi.Width(j)
		}
		wp[i] = fold * sum
	}
	return wp, nil
}
