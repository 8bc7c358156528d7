package cf

import (
	"log/slog"
	"math"
	"testing"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/common"
	"github.com/cosmoslab/twopt/paircount"
	"github.com/cosmoslab/twopt/params"
	"github.com/cosmoslab/twopt/tree"
)

// normTable builds a table whose Normalized() equals vals exactly.
func normTable(t *testing.T, ident string, spec *binning.Spec, vals []float64) *paircount.Table {
	t.Helper()
	tab := paircount.NewTable(paircount.ShapeOf(ident, spec, true), spec)
	if len(vals) != len(tab.Weighted) {
		t.Fatalf("Expected %d values, got %d", len(tab.Weighted), len(vals))
	}
	copy(tab.Weighted, vals)
	tab.Norm = 1
	return tab
}

func twoBinSpec(t *testing.T) *binning.Spec {
	t.Helper()
	s, err := binning.NewEdgesAxis([]float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	return &binning.Spec{Scheme: params.BinIso, S: s}
}

func TestEvaluateLandySzalay(t *testing.T) {
	spec := twoBinSpec(t)
	tables := map[string]*paircount.Table{
		"DD": normTable(t, "DD", spec, []float64{0.3, 0.4}),
		"DR": normTable(t, "DR", spec, []float64{0.1, 0.2}),
		"RR": normTable(t, "RR", spec, []float64{0.1, 0.1}),
	}
	e, err := Parse("(DD - 2*DR + RR) / RR")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Evaluate(e, tables, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{2, 1}
	for i, want := range expected {
		if math.Abs(res.Xi[i]-want) > 1e-12 {
			t.Errorf("Bin %d: expected xi %v, got %v", i, want, res.Xi[i])
		}
	}
	if res.NaNBins != 0 {
		t.Errorf("Expected no NaN bins, got %d", res.NaNBins)
	}
}

func TestEvaluateZeroDenominator(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()
	spec := twoBinSpec(t)
	tables := map[string]*paircount.Table{
		"DD": normTable(t, "DD", spec, []float64{0.3, 0.4}),
		"RR": normTable(t, "RR", spec, []float64{0.1, 0}),
	}
	e, err := Parse("DD / RR - 1")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Evaluate(e, tables, spec, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.NaNBins != 1 {
		t.Errorf("Expected 1 NaN bin, got %d", res.NaNBins)
	}
	if math.Abs(res.Xi[0]-2) > 1e-12 {
		t.Errorf("Bin 0: expected 2, got %v", res.Xi[0])
	}
	if !math.IsNaN(res.Xi[1]) {
		t.Errorf("Bin 1: expected NaN, got %v", res.Xi[1])
	}
}

func TestEvaluateMissingTable(t *testing.T) {
	spec := twoBinSpec(t)
	e, err := Parse("DD / RR")
	if err != nil {
		t.Fatal(err)
	}
	tables := map[string]*paircount.Table{
		"DD": normTable(t, "DD", spec, []float64{0.3, 0.4}),
	}
	if _, err := Evaluate(e, tables, spec, nil); err == nil {
		t.Error("Expected error for missing RR table")
	}
}

func TestAnalyticRR(t *testing.T) {
	spec := twoBinSpec(t)
	box, err := tree.NewBox([]float64{10, 10, 10})
	if err != nil {
		t.Fatal(err)
	}
	rr, err := AnalyticRR(spec, box)
	if err != nil {
		t.Fatal(err)
	}
	shell := 4.0 / 3.0 * math.Pi
	expected := []float64{shell / 1000, shell * 7 / 1000}
	for i, want := range expected {
		if math.Abs(rr[i]-want) > 1e-15 {
			t.Errorf("Bin %d: expected %v, got %v", i, want, rr[i])
		}
	}

	if _, err := AnalyticRR(spec, nil); err == nil {
		t.Error("Expected error without a periodic box")
	}
}

func TestEvaluateAnalyticRREstimator(t *testing.T) {
	spec := twoBinSpec(t)
	box, _ := tree.NewBox([]float64{10, 10, 10})
	rr, err := AnalyticRR(spec, box)
	if err != nil {
		t.Fatal(err)
	}
	// A "data" catalog exactly matching the uniform expectation has
	// xi = 0 everywhere.
	tables := map[string]*paircount.Table{
		"DD": normTable(t, "DD", spec, rr),
	}
	e, err := Parse("DD / @@ - 1")
	if err != nil {
		t.Fatal(err)
	}
	res, err := Evaluate(e, tables, spec, box)
	if err != nil {
		t.Fatal(err)
	}
	for i, xi := range res.Xi {
		if math.Abs(xi) > 1e-12 {
			t.Errorf("Bin %d: expected 0, got %v", i, xi)
		}
	}
}
