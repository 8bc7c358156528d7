package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/cosmoslab/twopt/cf"
	"github.com/cosmoslab/twopt/params"
)

// Derived tables (correlation functions, multipoles, wp) are ephemeral
// and human-facing; they are always written as commented text.

func g(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func writeCF(path string, res *cf.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# twopt correlation function\n")
	fmt.Fprintf(w, "# estimator = %s\n", res.Expr)
	fmt.Fprintf(w, "# scheme = %s\n", res.Spec.Scheme)
	if res.NaNBins > 0 {
		fmt.Fprintf(w, "# nan_bins = %d\n", res.NaNBins)
	}

	sc := res.Spec.S.Centers()
	_, n2 := res.Spec.Shape()
	switch res.Spec.Scheme {
	case params.BinIso:
		fmt.Fprintf(w, "# columns: s xi\n")
		for i, s := range sc {
			fmt.Fprintf(w, "%s %s\n", g(s), g(res.Xi[i]))
		}
	case params.BinSMu:
		fmt.Fprintf(w, "# columns: s mu xi\n")
		mc := res.Spec.MuCenters()
		for i, s := range sc {
			for j, mu := range mc {
				fmt.Fprintf(w, "%s %s %s\n", g(s), g(mu), g(res.Xi[i*n2+j]))
			}
		}
	case params.BinSpPi:
		fmt.Fprintf(w, "# columns: s_perp pi xi\n")
		pc := res.Spec.Pi.Centers()
		for i, sp := range sc {
			for j, pi := range pc {
				fmt.Fprintf(w, "%s %s %s\n", g(sp), g(pi), g(res.Xi[i*n2+j]))
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeMultipoles(path string, res *cf.Result, mp map[int][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	orders := make([]int, 0, len(mp))
	for ell := range mp {
		orders = append(orders, ell)
	}
	sort.Ints(orders)

	fmt.Fprintf(w, "# twopt multipoles\n")
	fmt.Fprintf(w, "# estimator = %s\n", res.Expr)
	fmt.Fprintf(w, "# columns: s")
	for _, ell := range orders {
		fmt.Fprintf(w, " xi_%d", ell)
	}
	fmt.Fprintln(w)

	for i, s := range res.Spec.S.Centers() {
		fmt.Fprintf(w, "%s", g(s))
		for _, ell := range orders {
			fmt.Fprintf(w, " %s", g(mp[ell][i]))
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeWp(path string, res *cf.Result, wp []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# twopt projected correlation function\n")
	fmt.Fprintf(w, "# estimator = %s\n", res.Expr)
	fmt.Fprintf(w, "# columns: s_perp wp\n")
	for i, sp := range res.Spec.S.Centers() {
		fmt.Fprintf(w, "%s %s\n", g(sp), g(wp[i]))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
