package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/monitoring"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Search every record and log the phone found for it",
	Long: "Loads the input table, searches each record by name and neighborhood, " +
		"selects the listing whose address matches best and appends one row per record " +
		"to the result log. Interrupted runs continue where they stopped with --resume.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyCrawlFlags(cmd)

		inputPath, _ := cmd.Flags().GetString("input")
		profile, _ := cmd.Flags().GetString("profile")
		inOpts, err := inputOptions(cfg.Input, profile)
		if err != nil {
			return err
		}

		env, err := initCrawl(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := crawl.RunOptions{
			InputPath: inputPath,
			Input:     inOpts,
			Provider:  cfg.Provider,
			OutputDir: cfg.Output.Dir,
			Prefix:    cfg.Output.Prefix,
		}
		opts.OutputPath, _ = cmd.Flags().GetString("log")
		opts.Resume, _ = cmd.Flags().GetBool("resume")
		opts.StartIndex, _ = cmd.Flags().GetInt("start")
		opts.EndIndex, _ = cmd.Flags().GetInt("end")
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		var sum *crawl.Summary
		err = runWithSidecars(ctx, env, func(ctx context.Context) error {
			var runErr error
			sum, runErr = env.Orchestrator.Run(ctx, opts)
			return runErr
		})
		if sum != nil {
			renderSummary(os.Stdout, "Crawl", sum)
		}
		return err
	},
}

// runWithSidecars runs fn next to the metrics server and alert checker when
// they are configured, and stops them once fn returns. A sidecar failure is
// logged and never stops fn.
func runWithSidecars(ctx context.Context, env *crawlEnv, fn func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	sideCtx, stopSidecars := context.WithCancel(gctx)
	defer stopSidecars()

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			if err := monitoring.Serve(sideCtx, cfg.Metrics.Addr, monitoring.NewRouter(env.Metrics)); err != nil {
				zap.L().Warn("metrics server stopped, continuing without it",
					zap.String("addr", cfg.Metrics.Addr),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	if cfg.Monitoring.WebhookURL != "" {
		checker := monitoring.NewChecker(
			monitoring.NewCollector(env.Store),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		g.Go(func() error {
			checker.Run(sideCtx)
			return nil
		})
	}

	g.Go(func() error {
		defer stopSidecars()
		return fn(gctx)
	})

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "crawl")
	}
	return nil
}

// applyCrawlFlags copies explicitly set flags over the loaded config.
func applyCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("provider") {
		cfg.Provider, _ = f.GetString("provider")
	}
	if f.Changed("output-dir") {
		cfg.Output.Dir, _ = f.GetString("output-dir")
	}
	if f.Changed("prefix") {
		cfg.Output.Prefix, _ = f.GetString("prefix")
	}
	if f.Changed("no-fallback") {
		noFallback, _ := f.GetBool("no-fallback")
		cfg.Crawl.Fallback = !noFallback
	}
	if f.Changed("top-n") {
		cfg.Crawl.TopN, _ = f.GetInt("top-n")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("fixture") {
		cfg.Offline.Fixture, _ = f.GetString("fixture")
	}
	zap.L().Debug("crawl settings",
		zap.String("provider", cfg.Provider),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Bool("fallback", cfg.Crawl.Fallback),
		zap.Int("top_n", cfg.Crawl.TopN),
	)
}

// addProviderFlags registers the flags shared by crawl and retry.
func addProviderFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "search provider: naver, google or offline (default from config)")
	cmd.Flags().String("fixture", "", "fixture file for the offline provider")
	cmd.Flags().String("output-dir", "", "directory for result logs (default from config)")
	cmd.Flags().String("prefix", "", "result log file prefix (default from config)")
	cmd.Flags().Bool("no-fallback", false, "skip the name-only search after a weak primary search")
	cmd.Flags().Int("top-n", 0, "candidates scored when a search returns several (default from config)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
}

func init() {
	crawlCmd.Flags().String("input", "", "input table (.csv or .xlsx)")
	crawlCmd.Flags().String("profile", "", "YAML file with column names and encoding")
	crawlCmd.Flags().String("log", "", "explicit result log to append to")
	crawlCmd.Flags().Bool("resume", false, "append to the latest result log and continue after its last index")
	crawlCmd.Flags().Int("start", 0, "first record index to process (1-based)")
	crawlCmd.Flags().Int("end", 0, "last record index to process, inclusive (0 means the last record)")
	crawlCmd.Flags().Int("limit", 0, "max records to process in this run")
	addProviderFlags(crawlCmd)
	_ = crawlCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(crawlCmd)
}
