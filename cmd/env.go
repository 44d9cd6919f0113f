package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/config"
	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/failure"
	"github.com/sells-group/phonematch-cli/internal/input"
	"github.com/sells-group/phonematch-cli/internal/match"
	"github.com/sells-group/phonematch-cli/internal/monitoring"
	"github.com/sells-group/phonematch-cli/internal/provider"
	"github.com/sells-group/phonematch-cli/internal/resilience"
	"github.com/sells-group/phonematch-cli/internal/store"
	"github.com/sells-group/phonematch-cli/pkg/google"
	"github.com/sells-group/phonematch-cli/pkg/naver"
)

// crawlEnv holds everything the crawl and retry commands share. Callers
// should defer env.Close().
type crawlEnv struct {
	Store        store.Store
	Collab       match.Collaborator
	Metrics      *monitoring.Metrics
	Orchestrator *crawl.Orchestrator

	closers []func() error
}

// Close releases the collaborator, cache and store.
func (e *crawlEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCrawl validates the config and wires the provider, cache, ledger,
// metrics and orchestrator.
func initCrawl(ctx context.Context) (*crawlEnv, error) {
	if err := cfg.Validate("crawl"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &crawlEnv{Store: st, closers: []func() error{st.Close}}

	collab, err := initCollaborator(cfg)
	if err != nil {
		env.Close()
		return nil, err
	}
	if c, ok := collab.(match.Closer); ok {
		env.closers = append(env.closers, c.Close)
	}

	cache, closeCache, err := initCache(ctx, st)
	if err != nil {
		env.Close()
		return nil, err
	}
	if closeCache != nil {
		env.closers = append(env.closers, closeCache)
	}
	if cache != nil {
		collab = provider.NewCached(collab, cache, cfg.Provider, cfg.Cache.TTL)
	}
	env.Collab = collab

	var pacer crawl.Pacer = crawl.NewPacer(crawl.PacerConfig{
		BaseDarwin: cfg.Crawl.BaseDarwin,
		BaseOther:  cfg.Crawl.BaseOther,
		JitterMin:  cfg.Crawl.JitterMin,
		JitterMax:  cfg.Crawl.JitterMax,
	})
	if cfg.Provider == "offline" {
		pacer = crawl.NoPacer{}
	}

	env.Metrics = monitoring.NewMetrics()
	env.Orchestrator = crawl.New(collab,
		crawl.WithDisambiguator(match.New(
			match.WithScorer(address.NewScorer(scorerWeights(cfg.Match))),
			match.WithTopN(cfg.Crawl.TopN),
		)),
		crawl.WithPacer(pacer),
		crawl.WithFallback(cfg.Crawl.Fallback),
		crawl.WithLedger(st),
		crawl.WithObserver(env.Metrics),
	)
	return env, nil
}

// initCollaborator builds the configured search provider.
func initCollaborator(c *config.Config) (match.Collaborator, error) {
	policy := retryPolicy(c.Retry)
	switch c.Provider {
	case "naver":
		client := naver.NewClient(c.Naver.ClientID, c.Naver.ClientSecret,
			naver.WithBaseURL(c.Naver.BaseURL),
			naver.WithRateLimit(c.Naver.RateLimit),
			naver.WithRetryPolicy(policy),
		)
		return provider.NewNaver(client, c.Naver.Display), nil
	case "google":
		client := google.NewClient(c.Google.Key,
			google.WithBaseURL(c.Google.BaseURL),
			google.WithRateLimit(c.Google.RateLimit),
			google.WithRetryPolicy(policy),
			google.WithLanguage(c.Google.Language, c.Google.Region),
			google.WithMaxResults(c.Google.MaxResults),
		)
		return provider.NewGoogle(client), nil
	case "offline":
		return provider.LoadOffline(c.Offline.Fixture)
	default:
		return nil, eris.Errorf("unsupported provider: %s", c.Provider)
	}
}

// initCache returns a nil cache when caching is disabled. The returned closer
// is nil when the cache shares the store's connection.
func initCache(ctx context.Context, st store.Store) (store.Cache, func() error, error) {
	switch cfg.Cache.Driver {
	case "sqlite":
		if n, err := st.DeleteExpiredSearches(ctx); err != nil {
			zap.L().Warn("sweep expired searches", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("swept expired searches", zap.Int("count", n))
		}
		return st, nil, nil
	case "redis":
		rc, err := store.NewRedisCache(ctx, store.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.Close, nil
	case "none", "":
		return nil, nil, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

func scorerWeights(m config.MatchConfig) address.Weights {
	return address.Weights{
		City:                   m.City,
		District:               m.District,
		Neighborhood:           m.Neighborhood,
		NeighborhoodBase:       m.NeighborhoodBase,
		Detail:                 m.Detail,
		LotNeighborhood:        m.LotNeighborhood,
		LotNumber:              m.LotNumber,
		RequireCityForDistrict: m.RequireCityForDistrict,
	}
}

func retryPolicy(r config.RetryConfig) resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		Multiplier:     r.Multiplier,
		JitterFraction: r.JitterFraction,
	}
}

// inputOptions maps the input config, then applies the profile file if one
// is set.
func inputOptions(c config.InputConfig, profile string) (input.Options, error) {
	opts := input.Options{
		Columns: input.Columns{
			Name:    c.NameColumn,
			Address: c.AddressColumn,
			Phone:   c.PhoneColumn,
		},
		Encoding:  c.Encoding,
		Sheet:     c.Sheet,
		Delimiter: c.Delimiter,
	}
	if profile == "" {
		profile = c.Profile
	}
	if profile == "" {
		return opts, nil
	}
	return input.LoadProfile(profile, opts)
}

func failureOptions(regions []string, prefix string, lowConfidence int) failure.Options {
	if lowConfidence <= 0 {
		lowConfidence = cfg.Match.LowConfidence
	}
	return failure.Options{
		Regions:       regions,
		LowConfidence: lowConfidence,
		RegionPrefix:  prefix,
	}
}

// sinceHours converts a lookback duration to whole hours, at least one.
func sinceHours(d time.Duration) int {
	h := int(d.Hours())
	if h < 1 {
		return 1
	}
	return h
}
