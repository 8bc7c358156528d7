package params

import (
	"os"
	"path/filepath"
	"runtime"
)

// MaxEll bounds the Legendre multipole order the projector will accept.
const MaxEll = 8

// AnalyticRR is the reserved estimator operand naming the analytic
// random-random term. The configuration surface spells it `@@`; it is
// rewritten to this identifier before expression parsing.
const AnalyticRR = "RRanalytic"

// DefaultLeafSize caps points per tree leaf.
var DefaultLeafSize = 32

// DefaultCellApproxSize is the node-size ceiling below which a node pair
// wholly inside one separation bin is accumulated without recursing.
var DefaultCellApproxSize = 128

var DatadirRoot = func() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".twopt")
}()

// Config carries one full run description. It is a plain value object:
// the cmd layer fills it from flags and an optional config file, calls
// Validate, and hands it down. Nothing in the engine reads globals.
type Config struct {
	// Catalogs and labels, parallel slices. Labels are single uppercase
	// letters (D for data, R for randoms, S for shifted, ...).
	CatalogPaths  []string `mapstructure:"catalog"`
	CatalogLabels []string `mapstructure:"catalog_label"`

	// BoxSize holds periodic box side lengths (3 values), or is empty
	// for open geometry. Periodic implies minimum-image separations.
	BoxSize []float64 `mapstructure:"box_size"`

	DataStruct DataStruct `mapstructure:"data_struct"`
	BinScheme  BinScheme  `mapstructure:"binning_scheme"`

	// Pairs lists the two-letter pair identifiers to count, e.g. DD, DR, RR.
	Pairs []string `mapstructure:"pair_count"`
	// PairOutputs are the persisted table paths, parallel to Pairs.
	PairOutputs []string `mapstructure:"pair_count_file"`

	// Estimators are correlation-function expressions over pair
	// identifiers, e.g. "(DD - 2*DR + RR) / RR".
	Estimators []string `mapstructure:"cf_estimator"`
	CFOutputs  []string `mapstructure:"cf_output_file"`

	Multipoles       []int    `mapstructure:"multipole"`
	MultipoleOutputs []string `mapstructure:"multipole_file"`

	ProjectedCF      bool     `mapstructure:"projected_cf"`
	ProjectedOutputs []string `mapstructure:"projected_file"`

	// Separation bins: either explicit edges, or min/max/step.
	SepEdges []float64 `mapstructure:"sep_bin_edges"`
	SepMin   float64   `mapstructure:"sep_bin_min"`
	SepMax   float64   `mapstructure:"sep_bin_max"`
	SepStep  float64   `mapstructure:"sep_bin_size"`

	MuBins int `mapstructure:"mu_bin_num"`
	// MuOneExclusive drops pairs at exactly mu = 1 instead of counting
	// them in the last mu bin. Default keeps them, matching the
	// closed-top convention of the distance axes.
	MuOneExclusive bool `mapstructure:"mu_one_exclusive"`

	PiEdges []float64 `mapstructure:"pi_bin_edges"`
	PiMin   float64   `mapstructure:"pi_bin_min"`
	PiMax   float64   `mapstructure:"pi_bin_max"`
	PiStep  float64   `mapstructure:"pi_bin_size"`
	// SignedPi bins the line-of-sight component with sign rather than
	// by absolute value. The projected-CF integrator doubles symmetric
	// contributions only for absolute-value axes.
	SignedPi bool `mapstructure:"signed_pi"`

	// Outdir anchors default output paths.
	Outdir string `mapstructure:"output_dir"`

	OutFormat OutFormat   `mapstructure:"out_format"`
	Cache     CachePolicy `mapstructure:"cache_policy"`
	CacheDB   string      `mapstructure:"cache_db"`

	LeafSize int `mapstructure:"leaf_size"`
	Workers  int `mapstructure:"workers"`

	// Rank/Ranks statically partition pair identifiers across
	// independent processes. Rank is zero-based. One identifier is
	// never split across ranks.
	Rank  int `mapstructure:"rank"`
	Ranks int `mapstructure:"ranks"`
}

func DefaultConfig() *Config {
	return &Config{
		DataStruct: StructKDTree,
		BinScheme:  BinIso,
		MuBins:     60,
		Outdir:     ".",
		OutFormat:  FormatBinary,
		Cache:      CacheTrust,
		CacheDB:    filepath.Join(DatadirRoot, "paircounts.db"),
		LeafSize:   DefaultLeafSize,
		Workers:    runtime.NumCPU(),
		Ranks:      1,
	}
}

// Periodic reports whether a (full) box was configured.
func (c *Config) Periodic() bool {
	return len(c.BoxSize) == 3
}
