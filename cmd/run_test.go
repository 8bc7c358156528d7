package cmd

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cosmoslab/twopt/common"
	"github.com/cosmoslab/twopt/paircount"
	"github.com/cosmoslab/twopt/params"
)

func TestBuildConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "run.yaml")
	body := `
catalog: [gals.dat, rand.dat]
catalog_label: [D, R]
box_size: [500, 500, 500]
binning_scheme: 1
pair_count: [DD, DR, RR]
cf_estimator: ["(DD - 2*DR + RR) / RR"]
sep_bin_min: 0
sep_bin_max: 150
sep_bin_size: 5
mu_bin_num: 40
multipole: [0, 2, 4]
workers: 3
`
	if err := os.WriteFile(conf, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	optConfFile = conf
	defer func() { optConfFile = "" }()

	cfg, err := buildConfig(runCmd.Flags())
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(cfg.CatalogPaths) != 2 || cfg.CatalogLabels[1] != "R" {
		t.Errorf("Catalogs: got %v / %v", cfg.CatalogPaths, cfg.CatalogLabels)
	}
	if !cfg.Periodic() || cfg.BoxSize[0] != 500 {
		t.Errorf("Box: got %v", cfg.BoxSize)
	}
	if cfg.BinScheme != params.BinSMu || cfg.MuBins != 40 {
		t.Errorf("Scheme: got %v with %d mu bins", cfg.BinScheme, cfg.MuBins)
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Workers)
	}
	// File must not disturb untouched defaults.
	if cfg.OutFormat != params.FormatBinary || cfg.LeafSize != params.DefaultLeafSize {
		t.Errorf("Defaults disturbed: format %v leaf %d", cfg.OutFormat, cfg.LeafSize)
	}
}

func TestPairOutPath(t *testing.T) {
	cfg := params.DefaultConfig()
	cfg.Outdir = "/out"
	cfg.Pairs = []string{"DD", "DR"}
	cfg.PairOutputs = []string{"custom_dd.dat"}

	if got := pairOutPath(cfg, "DD"); got != "custom_dd.dat" {
		t.Errorf("Expected configured path, got %q", got)
	}
	if got := pairOutPath(cfg, "DR"); got != filepath.Join("/out", "pc_DR.dat") {
		t.Errorf("Expected default path, got %q", got)
	}
	cfg.OutFormat = params.FormatASCII
	cfg.Ranks = 4
	cfg.Rank = 2
	if got := pairOutPath(cfg, "DR"); got != filepath.Join("/out", "pc_DR.r2.txt") {
		t.Errorf("Expected per-rank path, got %q", got)
	}
}

func writeGrid(t *testing.T, path string, n int, step float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("# x y z\n")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				b.WriteString(strconv.FormatFloat(float64(i)*step, 'g', -1, 64) + " " +
					strconv.FormatFloat(float64(j)*step, 'g', -1, 64) + " " +
					strconv.FormatFloat(float64(k)*step, 'g', -1, 64) + "\n")
			}
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Whole pipeline over a small periodic grid catalog: count, persist,
// evaluate an analytic-RR estimator, and reload the table on rerun.
func TestRunCFPeriodicGrid(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelWarn + 1)()

	dir := t.TempDir()
	cat := filepath.Join(dir, "grid.dat")
	writeGrid(t, cat, 5, 2) // 125 points, spacing 2, box 10

	cfg := params.DefaultConfig()
	cfg.CatalogPaths = []string{cat}
	cfg.CatalogLabels = []string{"D"}
	cfg.BoxSize = []float64{10, 10, 10}
	cfg.Pairs = []string{"DD"}
	cfg.Estimators = []string{"DD / @@ - 1"}
	cfg.SepMin = 0
	cfg.SepMax = 4
	cfg.SepStep = 1
	cfg.Outdir = dir
	cfg.CacheDB = filepath.Join(dir, "pc.db")
	cfg.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if err := runCF(cfg); err != nil {
		t.Fatal(err)
	}

	tablePath := filepath.Join(dir, "pc_DD.dat")
	tab, err := paircount.Load(tablePath, paircount.Shape{
		Ident: "DD", Scheme: params.BinIso, NS: 4, N2: 1, Periodic: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Wrapped lattice offsets land exactly: 6 axis neighbors at d = 2
	// and 12 planar diagonals at sqrt(8) per point fill the [2, 3) bin;
	// 8 cube diagonals at sqrt(12) and 6 neighbors at d = 4 (closed top
	// edge) fill [3, 4].
	if tab.Raw[0] != 0 || tab.Raw[1] != 0 {
		t.Errorf("Expected empty sub-spacing bins, got %d / %d", tab.Raw[0], tab.Raw[1])
	}
	if tab.Raw[2] != 125*18/2 {
		t.Errorf("Expected %d pairs in [2, 3), got %d", 125*18/2, tab.Raw[2])
	}
	if tab.Raw[3] != 125*14/2 {
		t.Errorf("Expected %d pairs in [3, 4], got %d", 125*14/2, tab.Raw[3])
	}
	if got := tab.TotalRaw() + tab.OutsideRaw; got != 125*124/2 {
		t.Errorf("Expected %d total pairs, got %d", 125*124/2, got)
	}

	cfPath := filepath.Join(dir, "cf_0.txt")
	data, err := os.ReadFile(cfPath)
	if err != nil {
		t.Fatal(err)
	}
	var xi2 float64 = math.NaN()
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		s, _ := strconv.ParseFloat(fields[0], 64)
		if s == 2.5 {
			xi2, _ = strconv.ParseFloat(fields[1], 64)
		}
	}
	if math.IsNaN(xi2) {
		t.Fatal("Missing s = 2.5 row in correlation output")
	}
	// The grid is denser than uniform at its lattice spacing: 1125 of
	// 7750 pairs in a shell holding ~8% of the box volume, xi ~ 0.82.
	if xi2 < 0.5 {
		t.Errorf("Expected clustering excess at the lattice spacing, got xi = %v", xi2)
	}

	// Rerun trusts the persisted table instead of recounting.
	if err := runCF(cfg); err != nil {
		t.Fatal(err)
	}
}
