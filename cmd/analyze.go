package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/phonematch-cli/internal/failure"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Bucket the failures in a result log",
	Long: "Reads a result log and sorts every failed row into ZERO_SIMILARITY, " +
		"PHONE_COLLECTION_FAILED, WRONG_REGION_MATCH or OTHER_FAILURE, with per-status " +
		"counts and the neighborhood distribution.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("offline"); err != nil {
			return err
		}
		path, err := resolveLog(cmd)
		if err != nil {
			return err
		}

		rows, err := outputlog.ReadAll(path)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		regions, _ := cmd.Flags().GetStringSlice("region")
		prefix, _ := cmd.Flags().GetString("region-prefix")
		low, _ := cmd.Flags().GetInt("low-confidence")
		rep := failure.Analyze(rows, failureOptions(regions, prefix, low))

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reportJSON(path, rep))
		}

		top, _ := cmd.Flags().GetInt("top-neighborhoods")
		renderReport(os.Stdout, path, rep, top)
		return nil
	},
}

type analyzeOutput struct {
	Log           string         `json:"log"`
	Total         int            `json:"total"`
	Matched       int            `json:"matched"`
	SuccessRate   float64        `json:"success_rate"`
	Skipped       int            `json:"skipped"`
	Statuses      map[string]int `json:"statuses"`
	Buckets       map[string]int `json:"buckets"`
	Neighborhoods map[string]int `json:"neighborhoods"`
}

func reportJSON(path string, rep *failure.Report) analyzeOutput {
	out := analyzeOutput{
		Log:           path,
		Total:         rep.Total,
		Matched:       rep.Matched(),
		SuccessRate:   rep.SuccessRate(),
		Skipped:       rep.Skipped,
		Statuses:      make(map[string]int, len(rep.Statuses)),
		Buckets:       make(map[string]int, len(rep.Buckets)),
		Neighborhoods: rep.Neighborhoods,
	}
	for s, n := range rep.Statuses {
		out.Statuses[string(s)] = n
	}
	for b, n := range rep.Buckets {
		out.Buckets[string(b)] = n
	}
	return out
}

// resolveLog returns the --log flag, or the latest log in the output dir.
func resolveLog(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("log"); p != "" {
		return p, nil
	}
	dir, prefix := cfg.Output.Dir, cfg.Output.Prefix
	if cmd.Flags().Changed("output-dir") {
		dir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("prefix") {
		prefix, _ = cmd.Flags().GetString("prefix")
	}
	p, err := outputlog.Latest(dir, prefix)
	if err != nil {
		return "", eris.Wrapf(err, "find latest log in %s", dir)
	}
	return p, nil
}

// addAnalysisFlags registers the flags shared by analyze and retry.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("log", "", "result log to read (default: latest in the output dir)")
	cmd.Flags().StringSlice("region", nil, "keywords a collected address must contain to count as in-region")
	cmd.Flags().String("region-prefix", "", "only consider rows whose original address contains this prefix")
	cmd.Flags().Int("low-confidence", 0, "score below which a match counts as OTHER_FAILURE (default from config)")
}

func init() {
	addAnalysisFlags(analyzeCmd)
	analyzeCmd.Flags().String("output-dir", "", "directory holding result logs (default from config)")
	analyzeCmd.Flags().String("prefix", "", "result log file prefix (default from config)")
	analyzeCmd.Flags().Int("top-neighborhoods", 10, "neighborhoods to list")
	analyzeCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
