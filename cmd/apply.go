package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/phonematch-cli/internal/apply"
	"github.com/sells-group/phonematch-cli/internal/input"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Merge result logs back into the input table",
	Long: "Writes a copy of the input table with a new_phone column after the phone column " +
		"and an update_comment column. When a record appears in several logs the row from " +
		"the newest log wins.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("offline"); err != nil {
			return err
		}
		ctx := cmd.Context()

		inputPath, _ := cmd.Flags().GetString("input")
		profile, _ := cmd.Flags().GetString("profile")
		inOpts, err := inputOptions(cfg.Input, profile)
		if err != nil {
			return err
		}

		logs, _ := cmd.Flags().GetStringSlice("log")
		if len(logs) == 0 {
			logs, err = outputlog.List(cfg.Output.Dir, cfg.Output.Prefix, cfg.Output.Prefix+"_retry")
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				return eris.Wrapf(outputlog.ErrNoLog, "apply: no logs in %s", cfg.Output.Dir)
			}
		}

		tbl, err := input.ReadTable(ctx, inputPath, inOpts)
		if err != nil {
			return eris.Wrap(err, "apply: load input")
		}
		results, err := apply.ReadLogs(logs)
		if err != nil {
			return err
		}

		header, rows, stats := apply.Apply(tbl, inOpts.Columns.Phone, results)

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = updatedPath(inputPath)
		}
		if err := apply.WriteCSV(out, header, rows); err != nil {
			return err
		}
		renderApply(os.Stdout, out, stats)
		return nil
	},
}

// updatedPath names the merged table next to the input: stores.xlsx becomes
// stores_updated.csv.
func updatedPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_updated.csv"
}

func init() {
	applyCmd.Flags().String("input", "", "input table (.csv or .xlsx)")
	applyCmd.Flags().String("profile", "", "YAML file with column names and encoding")
	applyCmd.Flags().StringSlice("log", nil, "result logs to merge, oldest first (default: every log in the output dir)")
	applyCmd.Flags().String("out", "", "merged table path (default: <input>_updated.csv)")
	_ = applyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(applyCmd)
}
