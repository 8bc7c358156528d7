package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print a template configuration file",
	Long: `
Print a commented YAML configuration template to stdout. Keys mirror
the run flags; enums use their integer values (data_struct: 0 kdtree,
1 balltree; binning_scheme: 0 iso, 1 smu, 2 sppi; out_format: 0 binary,
1 ascii; cache_policy: 0 trust, 1 force).
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(configTemplate)
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
}

const configTemplate = `# twopt run configuration
# Pass with: twopt run --conf this-file.yaml
# Flags given on the command line override file values.

# Input catalogs and their single-letter labels, parallel lists.
catalog:
  - data.dat
  - rand.dat
catalog_label:
  - D
  - R

# Periodic box side lengths; omit entirely for open geometry.
#box_size: [1000, 1000, 1000]

# 0: kdtree, 1: balltree
data_struct: 0
# 0: iso, 1: smu, 2: sppi
binning_scheme: 0

pair_count:
  - DD
  - DR
  - RR
# Optional explicit table paths, parallel to pair_count.
#pair_count_file: [pc_DD.dat, pc_DR.dat, pc_RR.dat]

cf_estimator:
  - (DD - 2*DR + RR) / RR
# For a periodic box, '@@' is the analytic RR term:
#  - (DD - @@) / @@

# Separation bins: explicit edges win over min/max/size.
#sep_bin_edges: [0, 1, 2, 5, 10]
sep_bin_min: 0
sep_bin_max: 150
sep_bin_size: 5

# smu scheme only.
mu_bin_num: 60
#mu_one_exclusive: true

# sppi scheme only.
#pi_bin_min: 0
#pi_bin_max: 80
#pi_bin_size: 2
#signed_pi: false

# Multipole orders (smu) and projected CF (sppi).
#multipole: [0, 2, 4]
#projected_cf: true

# 0: binary, 1: ascii
out_format: 0
# 0: trust existing tables, 1: force recount
cache_policy: 0
#cache_db: /path/to/paircounts.db   # 'off' disables the results DB
output_dir: .

#leaf_size: 32
#workers: 8
#rank: 0
#ranks: 1
`
