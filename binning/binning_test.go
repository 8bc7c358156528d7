package binning

import (
	"math"
	"testing"

	"github.com/cosmoslab/twopt/params"
)

func TestNewLinearAxis(t *testing.T) {
	a, err := NewLinearAxis(0, 10, 2.5)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{0, 2.5, 5, 7.5, 10}
	if len(a.Edges) != len(expected) {
		t.Fatalf("Expected %d edges, got %d", len(expected), len(a.Edges))
	}
	for i, e := range expected {
		if a.Edges[i] != e {
			t.Errorf("Edge %d: expected %v, got %v", i, e, a.Edges[i])
		}
	}

	// Uneven step lands exactly on max.
	a, err = NewLinearAxis(0, 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.Max() != 10 {
		t.Errorf("Expected max 10, got %v", a.Max())
	}
	if a.N() != 4 {
		t.Errorf("Expected 4 bins, got %d", a.N())
	}
}

func TestNewEdgesAxisRejects(t *testing.T) {
	cases := [][]float64{
		{1},
		{1, 1},
		{2, 1},
		{0, math.NaN()},
		{0, math.Inf(1)},
	}
	for _, edges := range cases {
		if _, err := NewEdgesAxis(edges); err == nil {
			t.Errorf("Expected error for edges %v", edges)
		}
	}
}

func TestFindBinBoundaries(t *testing.T) {
	a, err := NewEdgesAxis([]float64{0, 0.5, 1.5, 2})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		x    float64
		want int
	}{
		{-0.1, -1},
		{0, 0},     // lower edge inclusive
		{0.25, 0},
		{0.5, 1},   // internal edge goes up
		{1.0, 1},
		{1.5, 2},   // internal edge goes up
		{2.0, 2},   // global max stays in last bin
		{2.0001, -1},
	}
	for _, c := range cases {
		if got := a.FindBin(c.x); got != c.want {
			t.Errorf("FindBin(%v): expected %d, got %d", c.x, c.want, got)
		}
	}
}

func TestMuBinPolicy(t *testing.T) {
	incl := &Spec{Scheme: params.BinSMu, NMu: 10, MuOneInclusive: true}
	excl := &Spec{Scheme: params.BinSMu, NMu: 10, MuOneInclusive: false}

	if got := incl.MuBin(1); got != 9 {
		t.Errorf("Inclusive mu=1: expected bin 9, got %d", got)
	}
	if got := excl.MuBin(1); got != -1 {
		t.Errorf("Exclusive mu=1: expected -1, got %d", got)
	}
	if got := incl.MuBin(-0.35); got != 3 {
		t.Errorf("mu=-0.35: expected bin 3, got %d", got)
	}
	if got := incl.MuBin(0); got != 0 {
		t.Errorf("mu=0: expected bin 0, got %d", got)
	}
	if got := incl.MuBin(1.5); got != -1 {
		t.Errorf("mu=1.5: expected -1, got %d", got)
	}
}

func TestSpecShapeAndCell(t *testing.T) {
	s, _ := NewEdgesAxis([]float64{0, 1, 2, 3})
	pi, _ := NewEdgesAxis([]float64{0, 2, 4})
	spec := &Spec{Scheme: params.BinSpPi, S: s, Pi: pi}
	n1, n2 := spec.Shape()
	if n1 != 3 || n2 != 2 {
		t.Fatalf("Expected shape 3x2, got %dx%d", n1, n2)
	}
	if spec.FlatLen() != 6 {
		t.Errorf("Expected flat length 6, got %d", spec.FlatLen())
	}
	// Axis 2 fastest.
	if spec.Cell(1, 0) != 2 || spec.Cell(1, 1) != 3 {
		t.Errorf("Row-major layout broken: Cell(1,0)=%d Cell(1,1)=%d",
			spec.Cell(1, 0), spec.Cell(1, 1))
	}
}

func TestCellVolumesIso(t *testing.T) {
	s, _ := NewEdgesAxis([]float64{0, 1, 2})
	spec := &Spec{Scheme: params.BinIso, S: s}
	v := spec.CellVolumes()
	want0 := 4.0 / 3.0 * math.Pi
	want1 := 4.0 / 3.0 * math.Pi * 7
	if math.Abs(v[0]-want0) > 1e-12 || math.Abs(v[1]-want1) > 1e-12 {
		t.Errorf("Shell volumes: expected [%v %v], got %v", want0, want1, v)
	}
}

func TestCellVolumesSMuSumToShell(t *testing.T) {
	s, _ := NewEdgesAxis([]float64{0, 1})
	spec := &Spec{Scheme: params.BinSMu, S: s, NMu: 7}
	v := spec.CellVolumes()
	var sum float64
	for _, x := range v {
		sum += x
	}
	want := 4.0 / 3.0 * math.Pi
	if math.Abs(sum-want) > 1e-12 {
		t.Errorf("smu cell volumes should sum to the shell: expected %v, got %v", want, sum)
	}
}
