package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PRICEHOUND_INDEX_ADDRESS.
const EnvPrefix = "PRICEHOUND"

// Load reads configuration from .env, file, and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are merged on top by the caller.
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pricehound")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pricehound"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Tables given in the file replace the defaults instead of merging
	// element by element into them.
	if v.InConfig("source.fields") {
		cfg.Source.Fields = nil
	}
	if v.InConfig("detail.labels") {
		cfg.Detail.Labels = nil
	}
	if v.InConfig("search.price_buckets") {
		cfg.Search.PriceBuckets = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers scalar default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("source.url", cfg.Source.URL)
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.pages", cfg.Source.Pages)
	v.SetDefault("source.page_param", cfg.Source.PageParam)
	v.SetDefault("source.card_selector", cfg.Source.CardSelector)
	v.SetDefault("source.sort_selector", cfg.Source.SortSelector)
	v.SetDefault("source.currency_suffixes", cfg.Source.CurrencySuffixes)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.rate_per_second", cfg.Fetcher.RatePerSecond)
	v.SetDefault("fetcher.burst", cfg.Fetcher.Burst)
	v.SetDefault("fetcher.respect_robots_txt", cfg.Fetcher.RespectRobotsTxt)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("detail.enabled", cfg.Detail.Enabled)
	v.SetDefault("detail.concurrency", cfg.Detail.Concurrency)
	v.SetDefault("detail.kind", cfg.Detail.Kind)
	v.SetDefault("detail.value_template", cfg.Detail.ValueTemplate)
	v.SetDefault("detail.collect_all", cfg.Detail.CollectAll)
	v.SetDefault("detail.row_selector", cfg.Detail.RowSelector)
	v.SetDefault("detail.row_label", cfg.Detail.RowLabel)
	v.SetDefault("detail.row_value", cfg.Detail.RowValue)

	v.SetDefault("cache.type", cfg.Cache.Type)
	v.SetDefault("cache.servers", cfg.Cache.Servers)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("index.backend", cfg.Index.Backend)
	v.SetDefault("index.address", cfg.Index.Address)
	v.SetDefault("index.name", cfg.Index.Name)
	v.SetDefault("index.refresh", cfg.Index.Refresh)
	v.SetDefault("index.timeout", cfg.Index.Timeout)

	v.SetDefault("marker.type", cfg.Marker.Type)
	v.SetDefault("marker.label", cfg.Marker.Label)
	v.SetDefault("marker.dir", cfg.Marker.Dir)
	v.SetDefault("marker.redis_addr", cfg.Marker.RedisAddr)
	v.SetDefault("marker.redis_db", cfg.Marker.RedisDB)
	v.SetDefault("marker.key_prefix", cfg.Marker.KeyPrefix)

	v.SetDefault("search.query", cfg.Search.Query)
	v.SetDefault("search.fields", cfg.Search.Fields)
	v.SetDefault("search.size", cfg.Search.Size)
	v.SetDefault("search.min_ratings", cfg.Search.MinRatings)

	v.SetDefault("export.enabled", cfg.Export.Enabled)
	v.SetDefault("export.type", cfg.Export.Type)
	v.SetDefault("export.output_path", cfg.Export.OutputPath)
	v.SetDefault("export.mongo_uri", cfg.Export.MongoURI)
	v.SetDefault("export.database", cfg.Export.Database)
	v.SetDefault("export.collection", cfg.Export.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
}
