package cf

import (
	"math"
	"testing"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/params"
)

func TestLegendre(t *testing.T) {
	cases := []struct {
		ell  int
		x    float64
		want float64
	}{
		{0, 0.3, 1},
		{1, 0.3, 0.3},
		{2, 0.5, -0.125},
		{2, 1, 1},
		{4, 1, 1},
		{4, 0, 0.375},
	}
	for _, c := range cases {
		if got := legendre(c.ell, c.x); math.Abs(got-c.want) > 1e-14 {
			t.Errorf("P_%d(%v): expected %v, got %v", c.ell, c.x, c.want, got)
		}
	}
}

func smuResult(t *testing.T, ns, nmu int, xi func(i, j int) float64) *Result {
	t.Helper()
	s, err := binning.NewLinearAxis(0, float64(ns), 1)
	if err != nil {
		t.Fatal(err)
	}
	spec := &binning.Spec{Scheme: params.BinSMu, S: s, NMu: nmu, MuOneInclusive: true}
	vals := make([]float64, ns*nmu)
	for i := 0; i < ns; i++ {
		for j := 0; j < nmu; j++ {
			vals[i*nmu+j] = xi(i, j)
		}
	}
	return &Result{Expr: "DD / RR - 1", Spec: spec, Xi: vals}
}

// For a mu-independent xi the monopole reproduces it and the higher
// multipoles integrate to ~0 (midpoint rule, so only approximately).
func TestMultipolesIsotropicInput(t *testing.T) {
	res := smuResult(t, 3, 200, func(i, j int) float64 {
		return float64(i + 1)
	})
	out, err := Multipoles(res, []int{0, 2, 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		want := float64(i + 1)
		if math.Abs(out[0][i]-want) > 1e-12 {
			t.Errorf("Monopole bin %d: expected %v, got %v", i, want, out[0][i])
		}
		if math.Abs(out[2][i]) > 1e-3 {
			t.Errorf("Quadrupole bin %d: expected ~0, got %v", i, out[2][i])
		}
		if math.Abs(out[4][i]) > 1e-3 {
			t.Errorf("Hexadecapole bin %d: expected ~0, got %v", i, out[4][i])
		}
	}
}

// An injected pure P_2(mu) signal comes back in the quadrupole alone.
func TestMultipolesQuadrupoleSignal(t *testing.T) {
	nmu := 400
	res := smuResult(t, 2, nmu, func(i, j int) float64 {
		mu := (float64(j) + 0.5) / float64(nmu)
		return legendre(2, mu)
	})
	out, err := Multipoles(res, []int{0, 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if math.Abs(out[0][i]) > 1e-3 {
			t.Errorf("Monopole bin %d: expected ~0, got %v", i, out[0][i])
		}
		if math.Abs(out[2][i]-1) > 1e-3 {
			t.Errorf("Quadrupole bin %d: expected ~1, got %v", i, out[2][i])
		}
	}
}

func TestMultipolesRejects(t *testing.T) {
	res := smuResult(t, 2, 10, func(i, j int) float64 { return 0 })

	if _, err := Multipoles(res, []int{0, 99}); err == nil {
		t.Error("Expected error for out-of-range order")
	}
	if _, err := Multipoles(res, []int{-2}); err == nil {
		t.Error("Expected error for negative order")
	}

	s, _ := binning.NewEdgesAxis([]float64{0, 1})
	iso := &Result{Spec: &binning.Spec{Scheme: params.BinIso, S: s}, Xi: []float64{0}}
	if _, err := Multipoles(iso, []int{0}); err == nil {
		t.Error("Expected error for non-smu result")
	}
}

func TestMultipolesDedup(t *testing.T) {
	res := smuResult(t, 2, 10, func(i, j int) float64 { return 1 })
	out, err := Multipoles(res, []int{2, 0, 2, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("Expected 2 distinct orders, got %d", len(out))
	}
}
