package params

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfig classifies every configuration rejection. Wrapped errors
// carry the offending key and value; errors.Is(err, ErrConfig) holds
// for all of them.
var ErrConfig = errors.New("invalid configuration")

func cfgErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Validate rejects a Config before any catalog is read or pair counted.
// It checks only what can be known without data: label/pair syntax,
// bin definitions, box geometry, scheduling parameters.
func (c *Config) Validate() error {
	if len(c.CatalogPaths) == 0 {
		return cfgErrf("no catalogs given")
	}
	if len(c.CatalogLabels) != len(c.CatalogPaths) {
		return cfgErrf("catalog_label: want %d labels, got %d",
			len(c.CatalogPaths), len(c.CatalogLabels))
	}
	seen := map[string]bool{}
	for _, l := range c.CatalogLabels {
		if len(l) != 1 || l[0] < 'A' || l[0] > 'Z' {
			return cfgErrf("catalog_label: %q is not a single uppercase letter", l)
		}
		if seen[l] {
			return cfgErrf("catalog_label: duplicate label %q", l)
		}
		seen[l] = true
	}

	switch len(c.BoxSize) {
	case 0:
	case 3:
		for i, s := range c.BoxSize {
			if !(s > 0) || math.IsInf(s, 0) {
				return cfgErrf("box_size[%d]: %v is not a positive finite length", i, s)
			}
		}
	default:
		return cfgErrf("box_size: want 3 side lengths, got %d", len(c.BoxSize))
	}

	if c.DataStruct != StructKDTree && c.DataStruct != StructBallTree {
		return cfgErrf("data_struct: unknown value %d", int(c.DataStruct))
	}
	switch c.BinScheme {
	case BinIso:
	case BinSMu:
		if c.MuBins < 1 {
			return cfgErrf("mu_bin_num: want >= 1, got %d", c.MuBins)
		}
	case BinSpPi:
		if err := c.validatePiBins(); err != nil {
			return err
		}
	default:
		return cfgErrf("binning_scheme: unknown value %d", int(c.BinScheme))
	}

	if err := c.validateSepBins(); err != nil {
		return err
	}

	if len(c.Pairs) == 0 {
		return cfgErrf("no pair counts requested")
	}
	pairSeen := map[string]bool{}
	for _, p := range c.Pairs {
		if len(p) != 2 {
			return cfgErrf("pair_count: %q is not a two-letter identifier", p)
		}
		for i := 0; i < 2; i++ {
			if !seen[string(p[i])] {
				return cfgErrf("pair_count: %q references unknown catalog label %q", p, string(p[i]))
			}
		}
		if pairSeen[p] {
			return cfgErrf("pair_count: duplicate identifier %q", p)
		}
		pairSeen[p] = true
	}
	if len(c.PairOutputs) != 0 && len(c.PairOutputs) != len(c.Pairs) {
		return cfgErrf("pair_count_file: want %d paths, got %d", len(c.Pairs), len(c.PairOutputs))
	}

	for _, ell := range c.Multipoles {
		if ell < 0 || ell > MaxEll {
			return cfgErrf("multipole: order %d outside [0, %d]", ell, MaxEll)
		}
	}
	if len(c.Multipoles) > 0 && c.BinScheme != BinSMu {
		return cfgErrf("multipole: requires the smu binning scheme, have %s", c.BinScheme)
	}
	if c.ProjectedCF && c.BinScheme != BinSpPi {
		return cfgErrf("projected_cf: requires the sppi binning scheme, have %s", c.BinScheme)
	}

	if c.LeafSize < 1 {
		return cfgErrf("leaf_size: want >= 1, got %d", c.LeafSize)
	}
	if c.Workers < 1 {
		return cfgErrf("workers: want >= 1, got %d", c.Workers)
	}
	if c.Ranks < 1 {
		return cfgErrf("ranks: want >= 1, got %d", c.Ranks)
	}
	if c.Rank < 0 || c.Rank >= c.Ranks {
		return cfgErrf("rank: %d outside [0, %d)", c.Rank, c.Ranks)
	}
	return nil
}

func (c *Config) validateSepBins() error {
	if len(c.SepEdges) > 0 {
		return validateEdges("sep_bin_edges", c.SepEdges, false)
	}
	if !(c.SepMax > c.SepMin) || c.SepMin < 0 || c.SepStep <= 0 {
		return cfgErrf("separation bins: need sep_bin_min >= 0 < sep_bin_max and sep_bin_size > 0, got [%v, %v] step %v",
			c.SepMin, c.SepMax, c.SepStep)
	}
	return nil
}

func (c *Config) validatePiBins() error {
	if len(c.PiEdges) > 0 {
		return validateEdges("pi_bin_edges", c.PiEdges, c.SignedPi)
	}
	if !(c.PiMax > c.PiMin) || c.PiStep <= 0 {
		return cfgErrf("pi bins: need pi_bin_min < pi_bin_max and pi_bin_size > 0, got [%v, %v] step %v",
			c.PiMin, c.PiMax, c.PiStep)
	}
	if !c.SignedPi && c.PiMin < 0 {
		return cfgErrf("pi bins: negative pi_bin_min %v without signed_pi", c.PiMin)
	}
	return nil
}

func validateEdges(key string, edges []float64, allowNegative bool) error {
	if len(edges) < 2 {
		return cfgErrf("%s: want at least 2 edges, got %d", key, len(edges))
	}
	for i, e := range edges {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			return cfgErrf("%s[%d]: non-finite edge %v", key, i, e)
		}
		if !allowNegative && e < 0 {
			return cfgErrf("%s[%d]: negative edge %v", key, i, e)
		}
		if i > 0 && edges[i] <= edges[i-1] {
			return cfgErrf("%s: edges not strictly increasing at index %d (%v <= %v)",
				key, i, edges[i], edges[i-1])
		}
	}
	return nil
}
