package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/phonematch-cli/internal/failure"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-process the failed records of a result log",
	Long: "Analyzes a result log, selects the records in the requested failure buckets " +
		"(comma separated, or all) and processes them again into a new result log.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyCrawlFlags(cmd)

		bucketsFlag, _ := cmd.Flags().GetString("buckets")
		sel, err := failure.ParseSelector(bucketsFlag)
		if err != nil {
			return err
		}
		path, err := resolveLog(cmd)
		if err != nil {
			return err
		}

		env, err := initCrawl(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		regions, _ := cmd.Flags().GetStringSlice("region")
		prefix, _ := cmd.Flags().GetString("region-prefix")
		low, _ := cmd.Flags().GetInt("low-confidence")
		retrier := failure.NewRetrier(env.Orchestrator, cfg.Output.Dir, cfg.Output.Prefix+"_retry",
			failureOptions(regions, prefix, low))

		var rep *failure.RetryReport
		err = runWithSidecars(ctx, env, func(ctx context.Context) error {
			var retryErr error
			rep, retryErr = retrier.Retry(ctx, path, sel)
			return retryErr
		})
		if rep != nil {
			renderRetry(os.Stdout, rep)
		}
		return err
	},
}

func init() {
	retryCmd.Flags().String("buckets", "all", "failure buckets to retry, comma separated, or all")
	addAnalysisFlags(retryCmd)
	addProviderFlags(retryCmd)
	rootCmd.AddCommand(retryCmd)
}
