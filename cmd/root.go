package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var optVerbose bool
var optConfFile string

var rootCmd = &cobra.Command{
	Use:   "twopt",
	Short: "Two-point correlation functions of particle catalogs",
	Long: `
twopt counts weighted point pairs of labeled 3-D catalogs into
separation bins (isotropic, s x mu, or s_perp x pi), combines the
pair counts through estimator expressions like the Landy-Szalay
formula, and optionally projects the result onto Legendre multipoles
or integrates it into the projected correlation function.

Pair counts are cached (flat files and a results DB), so reruns with
an unchanged binning reuse them instead of recounting.
`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&optVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVarP(&optConfFile, "conf", "c", "", "Configuration file (YAML/TOML, keys match the run flags)")
}

// setDefaultSlog applies the logging verbosity before any command runs.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if optVerbose {
		level = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(level)
}
