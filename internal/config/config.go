// Package config loads phonematch settings from config.yaml, the environment
// and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PHONEMATCH"

// Config holds the full application configuration.
type Config struct {
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Provider   string           `yaml:"provider" mapstructure:"provider"`
	Naver      NaverConfig      `yaml:"naver" mapstructure:"naver"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Offline    OfflineConfig    `yaml:"offline" mapstructure:"offline"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InputConfig names the input columns and encoding.
type InputConfig struct {
	NameColumn    string `yaml:"name_column" mapstructure:"name_column"`
	AddressColumn string `yaml:"address_column" mapstructure:"address_column"`
	PhoneColumn   string `yaml:"phone_column" mapstructure:"phone_column"`
	Encoding      string `yaml:"encoding" mapstructure:"encoding"`
	Sheet         string `yaml:"sheet" mapstructure:"sheet"`
	Delimiter     string `yaml:"delimiter" mapstructure:"delimiter"`
	Profile       string `yaml:"profile" mapstructure:"profile"`
}

// OutputConfig places the result logs.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// CrawlConfig configures the crawl loop.
type CrawlConfig struct {
	TopN       int           `yaml:"top_n" mapstructure:"top_n"`
	Fallback   bool          `yaml:"fallback" mapstructure:"fallback"`
	BaseDarwin time.Duration `yaml:"base_darwin" mapstructure:"base_darwin"`
	BaseOther  time.Duration `yaml:"base_other" mapstructure:"base_other"`
	JitterMin  time.Duration `yaml:"jitter_min" mapstructure:"jitter_min"`
	JitterMax  time.Duration `yaml:"jitter_max" mapstructure:"jitter_max"`
}

// MatchConfig holds the similarity weights and analysis thresholds.
type MatchConfig struct {
	City                   int  `yaml:"city" mapstructure:"city"`
	District               int  `yaml:"district" mapstructure:"district"`
	Neighborhood           int  `yaml:"neighborhood" mapstructure:"neighborhood"`
	NeighborhoodBase       int  `yaml:"neighborhood_base" mapstructure:"neighborhood_base"`
	Detail                 int  `yaml:"detail" mapstructure:"detail"`
	LotNeighborhood        int  `yaml:"lot_neighborhood" mapstructure:"lot_neighborhood"`
	LotNumber              int  `yaml:"lot_number" mapstructure:"lot_number"`
	RequireCityForDistrict bool `yaml:"require_city_for_district" mapstructure:"require_city_for_district"`
	LowConfidence          int  `yaml:"low_confidence" mapstructure:"low_confidence"`
}

// NaverConfig holds Naver Open API credentials.
type NaverConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Display      int     `yaml:"display" mapstructure:"display"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Language   string  `yaml:"language" mapstructure:"language"`
	Region     string  `yaml:"region" mapstructure:"region"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// OfflineConfig points the offline provider at its fixture.
type OfflineConfig struct {
	Fixture string `yaml:"fixture" mapstructure:"fixture"`
}

// RetryConfig configures transport retries inside provider clients.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction float64       `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CacheConfig selects the search cache backend.
type CacheConfig struct {
	Driver string        `yaml:"driver" mapstructure:"driver"`
	TTL    time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Redis  RedisConfig   `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds the redis connection for the search cache.
type RedisConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// StoreConfig configures the run ledger database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// MonitoringConfig configures alerting on recent runs.
type MonitoringConfig struct {
	WebhookURL          string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinSuccessRate      float64 `yaml:"min_success_rate" mapstructure:"min_success_rate"`
	MaxErrorRate        float64 `yaml:"max_error_rate" mapstructure:"max_error_rate"`
	MinRecords          int     `yaml:"min_records" mapstructure:"min_records"`
	CheckIntervalSecs   int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first; variables already set win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("config: no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.name_column", "사업장명")
	v.SetDefault("input.address_column", "기존주소")
	v.SetDefault("input.phone_column", "기존전화번호")
	v.SetDefault("input.encoding", "auto")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.profile", "")
	v.SetDefault("output.dir", "result")
	v.SetDefault("output.prefix", "phone_result")
	v.SetDefault("crawl.top_n", 3)
	v.SetDefault("crawl.fallback", true)
	v.SetDefault("crawl.base_darwin", "1.5s")
	v.SetDefault("crawl.base_other", "2s")
	v.SetDefault("crawl.jitter_min", "300ms")
	v.SetDefault("crawl.jitter_max", "1s")
	v.SetDefault("match.city", 1)
	v.SetDefault("match.district", 1)
	v.SetDefault("match.neighborhood", 5)
	v.SetDefault("match.neighborhood_base", 3)
	v.SetDefault("match.detail", 1)
	v.SetDefault("match.lot_neighborhood", 10)
	v.SetDefault("match.lot_number", 5)
	v.SetDefault("match.require_city_for_district", true)
	v.SetDefault("match.low_confidence", 5)
	v.SetDefault("provider", "naver")
	v.SetDefault("naver.client_id", "")
	v.SetDefault("naver.client_secret", "")
	v.SetDefault("naver.base_url", "https://openapi.naver.com/v1/search")
	v.SetDefault("naver.display", 5)
	v.SetDefault("naver.rate_limit", 8)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.language", "ko")
	v.SetDefault("google.region", "KR")
	v.SetDefault("google.max_results", 5)
	v.SetDefault("google.rate_limit", 5)
	v.SetDefault("offline.fixture", "")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "10s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.ttl", "168h")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "phonematch:")
	v.SetDefault("store.path", "phonematch.db")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.min_success_rate", 0.3)
	v.SetDefault("monitoring.max_error_rate", 0.1)
	v.SetDefault("monitoring.min_records", 20)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks the settings a command needs. mode is "crawl" for commands
// that talk to a provider and "offline" for commands that only read logs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "crawl":
		switch c.Provider {
		case "naver":
			if c.Naver.ClientID == "" || c.Naver.ClientSecret == "" {
				errs = append(errs, "naver.client_id and naver.client_secret are required")
			}
		case "google":
			if c.Google.Key == "" {
				errs = append(errs, "google.key is required")
			}
		case "offline":
			if c.Offline.Fixture == "" {
				errs = append(errs, "offline.fixture is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("provider must be naver, google or offline, got %q", c.Provider))
		}
		if c.Crawl.TopN < 1 {
			errs = append(errs, "crawl.top_n must be >= 1")
		}
		if c.Crawl.JitterMax < c.Crawl.JitterMin {
			errs = append(errs, "crawl.jitter_max must be >= crawl.jitter_min")
		}
		switch c.Cache.Driver {
		case "sqlite", "redis", "none", "":
		default:
			errs = append(errs, fmt.Sprintf("cache.driver must be sqlite, redis or none, got %q", c.Cache.Driver))
		}
	case "offline":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	if c.Match.LowConfidence < 0 {
		errs = append(errs, "match.low_confidence must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
