package cf

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/cosmoslab/twopt/params"
)

// Multipole projection of an (s, mu) correlation function:
//
//	xi_ell(s) = (2*ell + 1) / nmu * sum_j P_ell(mu_j) xi(s, mu_j)
//
// with mu_j the mu-bin midpoints. Midpoint-rule integration; the error
// shrinks as nmu grows.

// legendreRows memoizes P_ell evaluated at the midpoints of an nmu
// partition, keyed by (ell, nmu).
var legendreRows, _ = lru.New[[2]int, []float64](4 * (params.MaxEll + 1))

// Multipoles projects a result of the smu scheme onto the requested
// Legendre orders. Duplicate orders collapse; the returned map holds
// one sequence over s per distinct order, ascending by order in Orders.
func Multipoles(res *Result, orders []int) (map[int][]float64, error) {
	if res.Spec.Scheme != params.BinSMu {
		return nil, fmt.Errorf("%w: multipoles require the smu scheme, have %s",
			params.ErrConfig, res.Spec.Scheme)
	}
	distinct := dedupOrders(orders)
	ns, nmu := res.Spec.Shape()

	out := make(map[int][]float64, len(distinct))
	for _, ell := range distinct {
		if ell < 0 || ell > params.MaxEll {
			return nil, fmt.Errorf("%w: multipole order %d outside [0, %d]",
				params.ErrConfig, ell, params.MaxEll)
		}
		row := legendreRow(ell, nmu)
		norm := float64(2*ell+1) / float64(nmu)
		xiEll := make([]float64, ns)
		for i := 0; i < ns; i++ {
			var sum float64
			base := i * nmu
			for j := 0; j < nmu; j++ {
				sum += row[j] * res.Xi[base+j]
			}
			xiEll[i] = norm * sum
		}
		out[ell] = xiEll
	}
	return out, nil
}

func dedupOrders(orders []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, ell := range orders {
		if !seen[ell] {
			seen[ell] = true
			out = append(out, ell)
		}
	}
	sort.Ints(out)
	return out
}

func legendreRow(ell, nmu int) []float64 {
	key := [2]int{ell, nmu}
	if row, ok := legendreRows.Get(key); ok {
		return row
	}
	row := make([]float64, nmu)
	d := 1.0 / float64(nmu)
	for j := range row {
		row[j] = legendre(ell, (float64(j)+0.5)*d)
	}
	legendreRows.Add(key, row)
	return row
}

// legendre evaluates P_ell(x) by the Bonnet recurrence.
func legendre(ell int, x float64) float64 {
	switch ell {
	case 0:
		return 1
	case 1:
		return x
	}
	p0, p1 := 1.0, x
	for k := 2; k <= ell; k++ {
		p0, p1 = p1, (float64(2*k-1)*x*p1-float64(k-1)*p0)/float64(k)
	}
	return p1
}
