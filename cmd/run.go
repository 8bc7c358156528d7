package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cosmoslab/twopt/binning"
	"github.com/cosmoslab/twopt/catalog"
	"github.com/cosmoslab/twopt/cf"
	"github.com/cosmoslab/twopt/paircount"
	"github.com/cosmoslab/twopt/params"
	"github.com/cosmoslab/twopt/pcdb"
	"github.com/cosmoslab/twopt/tree"
)

var (
	optCatalogs   []string
	optLabels     []string
	optBox        []float64
	optStruct     string
	optScheme     string
	optPairs      []string
	optPairOut    []string
	optEstimators []string
	optCFOut      []string
	optMultipoles []int
	optMpOut      []string
	optWp         bool
	optWpOut      []string
	optSMin       float64
	optSMax       float64
	optSStep      float64
	optMuNum      int
	optMuOneExcl  bool
	optPiMin      float64
	optPiMax      float64
	optPiStep     float64
	optSignedPi   bool
	optFormat     string
	optCache      string
	optCacheDB    string
	optOutdir     string
	optLeafSize   int
	optWorkersN   int
	optRank       int
	optRanks      int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Count pairs and evaluate correlation functions",
	Long: `
Count weighted pairs for each requested identifier, then evaluate the
configured estimator expressions.

Catalogs are whitespace ASCII (x y z [w], '#' comments) or JSON lines
(x, y, z, optional w), optionally gzipped. Labels are single uppercase
letters; a pair identifier is two labels, e.g. DD, DR, RR. A repeated
label (DD) counts unordered pairs of one catalog once.

With --box Lx,Ly,Lz separations use the minimum image in a periodic
box, and estimator expressions may use the analytic RR term '@@'
instead of counting randoms:

  twopt run --catalog halos.dat --label D --box 1000,1000,1000 \
    --s-min 0 --s-max 200 --s-step 5 \
    --pair DD --cf '(DD - @@) / @@'

Without a box, the classic Landy-Szalay run:

  twopt run --catalog gals.dat,rand.dat --label D,R \
    --s-min 0 --s-max 150 --s-step 5 \
    --pair DD,DR,RR --cf '(DD - 2*DR + RR) / RR'

Existing pair-count files whose shape matches the configured binning
are trusted and loaded unless --cache force. A shape mismatch is fatal,
never silently rebinned.

Multi-process runs partition identifiers across ranks:

  twopt run ... --rank $I --ranks $N

Each rank writes only its own tables; rerun with --ranks 1 (or merge
the per-rank files with 'twopt merge') once all ranks finish to
evaluate estimators from the cached tables.
`,
	PreRun: setDefaultSlog,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runCF(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()

	f.StringSliceVarP(&optCatalogs, "catalog", "i", nil, "Input catalog paths")
	f.StringSliceVarP(&optLabels, "label", "l", nil, "Single-letter labels, parallel to --catalog")
	f.Float64SliceVarP(&optBox, "box", "b", nil, "Periodic box side lengths Lx,Ly,Lz (omit for open geometry)")
	f.StringVarP(&optStruct, "data-struct", "S", "kdtree", "Spatial index: kdtree or balltree")
	f.StringVarP(&optScheme, "bin", "B", "iso", "Binning scheme: iso, smu, or sppi")
	f.StringSliceVarP(&optPairs, "pair", "p", nil, "Pair identifiers to count")
	f.StringSliceVarP(&optPairOut, "pair-output", "P", nil, "Pair-count file paths, parallel to --pair")
	f.StringSliceVarP(&optEstimators, "cf", "e", nil, "Estimator expressions")
	f.StringSliceVar(&optCFOut, "cf-output", nil, "Correlation-function output paths, parallel to --cf")
	f.IntSliceVarP(&optMultipoles, "multipole", "m", nil, "Legendre orders to project (smu scheme)")
	f.StringSliceVarP(&optMpOut, "mp-output", "M", nil, "Multipole output paths, parallel to --cf")
	f.BoolVarP(&optWp, "wp", "u", false, "Integrate the projected correlation function (sppi scheme)")
	f.StringSliceVarP(&optWpOut, "wp-output", "U", nil, "Projected-CF output paths, parallel to --cf")

	f.Float64Var(&optSMin, "s-min", 0, "Lower separation edge")
	f.Float64Var(&optSMax, "s-max", 0, "Upper separation edge")
	f.Float64Var(&optSStep, "s-step", 0, "Separation bin width")
	f.IntVar(&optMuNum, "mu-num", 60, "Number of mu bins on [0, 1]")
	f.BoolVar(&optMuOneExcl, "mu-one-exclusive", false, "Drop pairs at exactly mu = 1 instead of counting them in the last bin")
	f.Float64Var(&optPiMin, "pi-min", 0, "Lower pi edge (sppi scheme)")
	f.Float64Var(&optPiMax, "pi-max", 0, "Upper pi edge")
	f.Float64Var(&optPiStep, "pi-step", 0, "Pi bin width")
	f.BoolVar(&optSignedPi, "signed-pi", false, "Bin pi with sign instead of absolute value")

	f.StringVarP(&optFormat, "format", "F", "binary", "Pair-count file format: binary or ascii")
	f.StringVar(&optCache, "cache", "trust", "Existing-table policy: trust or force")
	f.StringVar(&optCacheDB, "cache-db", "", "Results DB path (default ~/.twopt/paircounts.db, empty string keeps default; 'off' disables)")
	f.StringVarP(&optOutdir, "outdir", "o", ".", "Directory for default output paths")
	f.IntVar(&optLeafSize, "leaf-size", params.DefaultLeafSize, "Max points per tree leaf")
	f.IntVarP(&optWorkersN, "workers", "w", 0, "Worker threads per count (default NumCPU)")
	f.IntVar(&optRank, "rank", 0, "This process's zero-based rank")
	f.IntVar(&optRanks, "ranks", 1, "Total process count")
}

// buildConfig layers defaults, then the config file, then changed flags.
func buildConfig(fl *pflag.FlagSet) (*params.Config, error) {
	cfg := params.DefaultConfig()

	if optConfFile != "" {
		v := viper.New()
		v.SetConfigFile(optConfFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", params.ErrConfig, optConfFile, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", params.ErrConfig, optConfFile, err)
		}
	}

	if fl.Changed("catalog") {
		cfg.CatalogPaths = optCatalogs
	}
	if fl.Changed("label") {
		cfg.CatalogLabels = optLabels
	}
	if fl.Changed("box") {
		cfg.BoxSize = optBox
	}
	if fl.Changed("data-struct") {
		switch optStruct {
		case "kdtree":
			cfg.DataStruct = params.StructKDTree
		case "balltree":
			cfg.DataStruct = params.StructBallTree
		default:
			return nil, fmt.Errorf("%w: data-struct %q", params.ErrConfig, optStruct)
		}
	}
	if fl.Changed("bin") {
		switch optScheme {
		case "iso":
			cfg.BinScheme = params.BinIso
		case "smu":
			cfg.BinScheme = params.BinSMu
		case "sppi":
			cfg.BinScheme = params.BinSpPi
		default:
			return nil, fmt.Errorf("%w: bin %q", params.ErrConfig, optScheme)
		}
	}
	if fl.Changed("pair") {
		cfg.Pairs = optPairs
	}
	if fl.Changed("pair-output") {
		cfg.PairOutputs = optPairOut
	}
	if fl.Changed("cf") {
		cfg.Estimators = optEstimators
	}
	if fl.Changed("cf-output") {
		cfg.CFOutputs = optCFOut
	}
	if fl.Changed("multipole") {
		cfg.Multipoles = optMultipoles
	}
	if fl.Changed("mp-output") {
		cfg.MultipoleOutputs = optMpOut
	}
	if fl.Changed("wp") {
		cfg.ProjectedCF = optWp
	}
	if fl.Changed("wp-output") {
		cfg.ProjectedOutputs = optWpOut
	}
	if fl.Changed("s-min") {
		cfg.SepMin = optSMin
	}
	if fl.Changed("s-max") {
		cfg.SepMax = optSMax
	}
	if fl.Changed("s-step") {
		cfg.SepStep = optSStep
	}
	if fl.Changed("mu-num") {
		cfg.MuBins = optMuNum
	}
	if fl.Changed("mu-one-exclusive") {
		cfg.MuOneExclusive = optMuOneExcl
	}
	if fl.Changed("pi-min") {
		cfg.PiMin = optPiMin
	}
	if fl.Changed("pi-max") {
		cfg.PiMax = optPiMax
	}
	if fl.Changed("pi-step") {
		cfg.PiStep = optPiStep
	}
	if fl.Changed("signed-pi") {
		cfg.SignedPi = optSignedPi
	}
	if fl.Changed("format") {
		switch optFormat {
		case "binary":
			cfg.OutFormat = params.FormatBinary
		case "ascii":
			cfg.OutFormat = params.FormatASCII
		default:
			return nil, fmt.Errorf("%w: format %q", params.ErrConfig, optFormat)
		}
	}
	if fl.Changed("cache") {
		switch optCache {
		case "trust":
			cfg.Cache = params.CacheTrust
		case "force":
			cfg.Cache = params.CacheForce
		default:
			return nil, fmt.Errorf("%w: cache %q", params.ErrConfig, optCache)
		}
	}
	if fl.Changed("cache-db") {
		cfg.CacheDB = optCacheDB
	}
	if fl.Changed("outdir") {
		cfg.Outdir = optOutdir
	}
	if fl.Changed("leaf-size") {
		cfg.LeafSize = optLeafSize
	}
	if fl.Changed("workers") {
		cfg.Workers = optWorkersN
	}
	if fl.Changed("rank") {
		cfg.Rank = optRank
	}
	if fl.Changed("ranks") {
		cfg.Ranks = optRanks
	}
	return cfg, nil
}

// runCF is the whole pipeline: catalogs -> trees -> pair counts ->
// estimators -> multipoles / wp.
func runCF(cfg *params.Config) error {
	started := time.Now()

	spec, err := binning.FromConfig(cfg)
	if err != nil {
		return err
	}

	var box *tree.Box
	if cfg.Periodic() {
		box, err = tree.NewBox(cfg.BoxSize)
		if err != nil {
			return err
		}
		if spec.S.Max() > box.MaxSeparation() {
			slog.Warn("Separation range exceeds the box's minimum-image reach",
				"s-max", spec.S.Max(), "box-max", box.MaxSeparation())
		}
	}

	// Catalogs and trees only for labels some pair references.
	needed := map[string]bool{}
	for _, p := range cfg.Pairs {
		needed[string(p[0])] = true
		needed[string(p[1])] = true
	}
	trees := map[string]*tree.Tree{}
	for i, label := range cfg.CatalogLabels {
		if !needed[label] {
			slog.Debug("Catalog unused by any pair", "label", label)
			continue
		}
		cat, err := catalog.Read(label, cfg.CatalogPaths[i])
		if err != nil {
			return err
		}
		slog.Info("Read catalog", "path", cfg.CatalogPaths[i], "catalog", cat.Summarize())
		t, err := tree.Build(cat, cfg.DataStruct, box, cfg.LeafSize)
		if err != nil {
			return err
		}
		slog.Debug("Built index", "label", label, "kind", cfg.DataStruct, "nodes", len(t.Nodes))
		trees[label] = t
	}
	for label := range needed {
		if trees[label] == nil {
			return fmt.Errorf("%w: pair references label %q but no catalog carries it",
				params.ErrConfig, label)
		}
	}

	var store *pcdb.Store
	if cfg.CacheDB != "" && cfg.CacheDB != "off" {
		store, err = pcdb.Open(cfg.CacheDB)
		if err != nil {
			slog.Warn("Results DB unavailable, proceeding without", "path", cfg.CacheDB, "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	mine := paircount.Plan(cfg.Pairs, cfg.Rank, cfg.Ranks)
	if cfg.Ranks > 1 {
		slog.Info("Rank partition", "rank", cfg.Rank, "ranks", cfg.Ranks, "idents", mine)
	}

	tables := map[string]*paircount.Table{}
	for _, ident := range mine {
		table, err := obtainTable(cfg, spec, trees, store, ident)
		if err != nil {
			return err
		}
		tables[ident] = table
	}

	if cfg.Ranks > 1 && cfg.Rank != 0 {
		slog.Info("Rank done; tables written", "rank", cfg.Rank, "took", time.Since(started).Round(time.Millisecond))
		return nil
	}

	// Estimators need every requested pair; under a multi-rank run the
	// missing ones may still be on other ranks.
	for _, ident := range cfg.Pairs {
		if tables[ident] != nil {
			continue
		}
		shape := paircount.ShapeOf(ident, spec, cfg.Periodic())
		t, err := loadExisting(cfg, spec, store, ident, shape)
		if err != nil || t == nil {
			if cfg.Ranks > 1 {
				slog.Warn("Pair table not yet available; skipping estimators", "ident", ident)
				return nil
			}
			if err == nil {
				err = fmt.Errorf("pair table %s missing", ident)
			}
			return err
		}
		tables[ident] = t
	}

	if err := evaluateAll(cfg, spec, box, tables); err != nil {
		return err
	}
	slog.Info("Run complete", "took", time.Since(started).Round(time.Millisecond))
	return nil
}

// pairOutPath resolves the persisted-table path of an identifier.
func pairOutPath(cfg *params.Config, ident string) string {
	for i, p := range cfg.Pairs {
		if p == ident && i < len(cfg.PairOutputs) {
			return cfg.PairOutputs[i]
		}
	}
	ext := ".dat"
	if cfg.OutFormat == params.FormatASCII {
		ext = ".txt"
	}
	name := fmt.Sprintf("pc_%s%s", ident, ext)
	if cfg.Ranks > 1 {
		name = fmt.Sprintf("pc_%s.r%d%s", ident, cfg.Rank, ext)
	}
	return filepath.Join(cfg.Outdir, name)
}

// loadExisting tries the flat file, then the results DB. A missing
// table returns (nil, nil); a shape mismatch is an error.
func loadExisting(cfg *params.Config, spec *binning.Spec, store *pcdb.Store, ident string, shape paircount.Shape) (*paircount.Table, error) {
	path := pairOutPath(cfg, ident)
	if _, err := os.Stat(path); err == nil {
		t, err := paircount.Load(path, shape)
		if err != nil {
			if errors.Is(err, paircount.ErrShapeMismatch) {
				return nil, err
			}
			slog.Warn("Unreadable pair-count file", "path", path, "error", err)
		} else {
			slog.Info("Loaded pair counts", "ident", ident, "path", path)
			return t, nil
		}
	}
	if store != nil {
		piEdges := []float64(nil)
		if spec.Scheme == params.BinSpPi {
			piEdges = spec.Pi.Edges
		}
		t, ok, err := store.Get(shape, spec.S.Edges, piEdges)
		if err != nil {
			slog.Warn("Results DB lookup failed", "ident", ident, "error", err)
		} else if ok {
			slog.Info("Loaded pair counts from results DB", "ident", ident)
			return t, nil
		}
	}
	return nil, nil
}

// obtainTable loads a trusted existing table or counts a fresh one,
// persisting it both ways.
func obtainTable(cfg *params.Config, spec *binning.Spec, trees map[string]*tree.Tree, store *pcdb.Store, ident string) (*paircount.Table, error) {
	shape := paircount.ShapeOf(ident, spec, cfg.Periodic())
	if cfg.Cache == params.CacheTrust {
		t, err := loadExisting(cfg, spec, store, ident, shape)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}

	ta := trees[string(ident[0])]
	tb := trees[string(ident[1])]
	table, err := paircount.Count(ta, tb, ident, spec, paircount.Options{
		Workers:       cfg.Workers,
		MeterInterval: 10 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Counted pairs", "ident", ident,
		"in-range", table.TotalRaw(), "outside", table.OutsideRaw)

	path := pairOutPath(cfg, ident)
	if err := table.Save(path, cfg.OutFormat); err != nil {
		return nil, err
	}
	slog.Debug("Wrote pair counts", "ident", ident, "path", path)
	if store != nil {
		if err := store.Put(table); err != nil {
			slog.Warn("Results DB store failed", "ident", ident, "error", err)
		}
	}
	return table, nil
}

// evaluateAll runs every estimator and its derived products.
func evaluateAll(cfg *params.Config, spec *binning.Spec, box *tree.Box, tables map[string]*paircount.Table) error {
	for i, src := range cfg.Estimators {
		expr, err := cf.Parse(src)
		if err != nil {
			return err
		}
		res, err := cf.Evaluate(expr, tables, spec, box)
		if err != nil {
			return err
		}

		cfPath := outPath(cfg.CFOutputs, i, cfg.Outdir, fmt.Sprintf("cf_%d.txt", i))
		if err := writeCF(cfPath, res); err != nil {
			return err
		}
		slog.Info("Wrote correlation function", "expr", src, "path", cfPath, "nan-bins", res.NaNBins)

		if len(cfg.Multipoles) > 0 {
			mp, err := cf.Multipoles(res, cfg.Multipoles)
			if err != nil {
				return err
			}
			mpPath := outPath(cfg.MultipoleOutputs, i, cfg.Outdir, fmt.Sprintf("mp_%d.txt", i))
			if err := writeMultipoles(mpPath, res, mp); err != nil {
				return err
			}
			slog.Info("Wrote multipoles", "orders", cfg.Multipoles, "path", mpPath)
		}
		if cfg.ProjectedCF {
			wp, err := cf.ProjectedCF(res)
			if err != nil {
				return err
			}
			wpPath := outPath(cfg.ProjectedOutputs, i, cfg.Outdir, fmt.Sprintf("wp_%d.txt", i))
			if err := writeWp(wpPath, res, wp); err != nil {
				return err
			}
			slog.Info("Wrote projected CF", "path", wpPath)
		}
	}
	return nil
}

func outPath(paths []string, i int, outdir, fallback string) string {
	if i < len(paths) {
		return paths[i]
	}
	return filepath.Join(outdir, fallback)
}
