package tree

import (
	"math"
	"testing"
)

func TestNewBoxRejects(t *testing.T) {
	cases := [][]float64{
		{100, 100},
		{100, -1, 100},
		{100, 0, 100},
		{100, math.NaN(), 100},
		{100, math.Inf(1), 100},
	}
	for _, sides := range cases {
		if _, err := NewBox(sides); err == nil {
			t.Errorf("Expected error for sides %v", sides)
		}
	}
}

func TestMinImage(t *testing.T) {
	b, err := NewBox([]float64{100, 100, 100})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		d, want float64
	}{
		{0, 0},
		{30, 30},
		{50, 50},
		{60, -40},
		{-60, 40},
		{99, -1},
	}
	for _, c := range cases {
		if got := b.MinImage(c.d, 0); got != c.want {
			t.Errorf("MinImage(%v): expected %v, got %v", c.d, c.want, got)
		}
	}
}

func TestFold(t *testing.T) {
	b, _ := NewBox([]float64{10, 10, 10})
	cases := []struct {
		x, want float64
	}{
		{0, 0},
		{3, 3},
		{10, 0},
		{13, 3},
		{-2, 8},
	}
	for _, c := range cases {
		if got := b.Fold(c.x, 1); got != c.want {
			t.Errorf("Fold(%v): expected %v, got %v", c.x, c.want, got)
		}
	}
}

func TestAxisGap(t *testing.T) {
	b, _ := NewBox([]float64{100, 100, 100})
	cases := []struct {
		a0, a1, b0, b1, want float64
	}{
		{10, 20, 15, 30, 0},  // overlap
		{10, 20, 30, 40, 10}, // plain gap
		{5, 10, 90, 95, 10},  // wraps around zero
		{90, 95, 5, 10, 10},  // symmetric
	}
	for _, c := range cases {
		if got := b.axisGap(c.a0, c.a1, c.b0, c.b1, 0); got != c.want {
			t.Errorf("axisGap([%v,%v],[%v,%v]): expected %v, got %v",
				c.a0, c.a1, c.b0, c.b1, c.want, got)
		}
	}
}
