package params

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.CatalogPaths = []string{"data.txt", "rand.txt"}
	c.CatalogLabels = []string{"D", "R"}
	c.Pairs = []string{"DD", "DR", "RR"}
	c.SepMin = 0
	c.SepMax = 100
	c.SepStep = 5
	return c
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	c := validConfig()
	c.BoxSize = []float64{500, 500, 500}
	c.BinScheme = BinSMu
	c.MuBins = 40
	c.Multipoles = []int{0, 2, 4}
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected valid smu config, got %v", err)
	}

	c = validConfig()
	c.BinScheme = BinSpPi
	c.PiMin = 0
	c.PiMax = 40
	c.PiStep = 2
	c.ProjectedCF = true
	if err := c.Validate(); err != nil {
		t.Fatalf("Expected valid sppi config, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no catalogs", func(c *Config) { c.CatalogPaths = nil }},
		{"label count", func(c *Config) { c.CatalogLabels = []string{"D"} }},
		{"lowercase label", func(c *Config) { c.CatalogLabels = []string{"D", "r"} }},
		{"duplicate label", func(c *Config) { c.CatalogLabels = []string{"D", "D"} }},
		{"box dims", func(c *Config) { c.BoxSize = []float64{100, 100} }},
		{"box negative", func(c *Config) { c.BoxSize = []float64{100, -1, 100} }},
		{"bad struct", func(c *Config) { c.DataStruct = DataStruct(99) }},
		{"bad scheme", func(c *Config) { c.BinScheme = BinScheme(99) }},
		{"no mu bins", func(c *Config) { c.BinScheme = BinSMu; c.MuBins = 0 }},
		{"no pairs", func(c *Config) { c.Pairs = nil }},
		{"long pair", func(c *Config) { c.Pairs = []string{"DDD"} }},
		{"unknown pair label", func(c *Config) { c.Pairs = []string{"DX"} }},
		{"duplicate pair", func(c *Config) { c.Pairs = []string{"DD", "DD"} }},
		{"pair outputs", func(c *Config) { c.PairOutputs = []string{"only-one.dat"} }},
		{"sep range", func(c *Config) { c.SepMin = 10; c.SepMax = 5 }},
		{"sep step", func(c *Config) { c.SepStep = 0 }},
		{"negative sep edge", func(c *Config) { c.SepEdges = []float64{-1, 0, 1} }},
		{"unsorted edges", func(c *Config) { c.SepEdges = []float64{0, 2, 1} }},
		{"multipole order", func(c *Config) { c.BinScheme = BinSMu; c.Multipoles = []int{MaxEll + 1} }},
		{"multipole scheme", func(c *Config) { c.Multipoles = []int{0} }},
		{"projected scheme", func(c *Config) { c.ProjectedCF = true }},
		{"leaf size", func(c *Config) { c.LeafSize = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"rank range", func(c *Config) { c.Rank = 4; c.Ranks = 4 }},
		{"negative pi without sign", func(c *Config) {
			c.BinScheme = BinSpPi
			c.PiMin = -10
			c.PiMax = 10
			c.PiStep = 1
		}},
	}
	for _, tc := range cases {
		c := validConfig()
		tc.mutate(c)
		if err := c.Validate(); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v", tc.name, err)
		}
	}
}

func TestPeriodic(t *testing.T) {
	c := validConfig()
	if c.Periodic() {
		t.Error("Expected open geometry without box_size")
	}
	c.BoxSize = []float64{1000, 1000, 1000}
	if !c.Periodic() {
		t.Error("Expected periodic geometry with box_size")
	}
}

func TestEnumStrings(t *testing.T) {
	cases := []struct {
		v    interface{ String() string }
		want string
	}{
		{StructKDTree, "kdtree"},
		{StructBallTree, "balltree"},
		{BinIso, "iso"},
		{BinSMu, "smu"},
		{BinSpPi, "sppi"},
		{FormatBinary, "binary"},
		{FormatASCII, "ascii"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("Expected %q, got %q", c.want, got)
		}
	}
}
