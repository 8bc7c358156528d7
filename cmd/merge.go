package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cosmoslab/twopt/paircount"
	"github.com/cosmoslab/twopt/params"
)

var optMergeOut string
var optMergeFormat string

var mergeCmd = &cobra.Command{
	Use:   "merge [table files]",
	Short: "Sum per-rank pair-count tables into one",
	Long: `
Sum pair-count tables written by independent ranks of the same run into
a single table: the file-side half of the cross-process reduction.

All inputs must share one shape (identifier, scheme, bins, edges); a
mismatch aborts. Binary and text tables mix freely.

  twopt merge -o pc_DD.dat pc_DD.r0.dat pc_DD.r1.dat pc_DD.r2.dat
`,
	Args:   cobra.MinimumNArgs(1),
	PreRun: setDefaultSlog,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := params.FormatBinary
		switch optMergeFormat {
		case "binary":
		case "ascii":
			format = params.FormatASCII
		default:
			return fmt.Errorf("%w: format %q", params.ErrConfig, optMergeFormat)
		}

		merged, err := paircount.MergeFiles(args)
		if err != nil {
			return err
		}
		if err := merged.Save(optMergeOut, format); err != nil {
			return err
		}
		slog.Info("Merged pair counts", "ident", merged.Ident,
			"inputs", len(args), "in-range", merged.TotalRaw(), "out", optMergeOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVarP(&optMergeOut, "output", "o", "", "Merged table path (required)")
	mergeCmd.Flags().StringVarP(&optMergeFormat, "format", "F", "binary", "Output format: binary or ascii")
	mergeCmd.MarkFlagRequired("output")
}
