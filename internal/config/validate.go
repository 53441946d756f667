package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Source.URL); err != nil {
		return fmt.Errorf("source.url: %w", err)
	}
	if err := ValidateURL(cfg.Source.BaseURL); err != nil {
		return fmt.Errorf("source.base_url: %w", err)
	}
	if cfg.Source.Pages < 1 {
		return fmt.Errorf("source.pages must be >= 1, got %d", cfg.Source.Pages)
	}
	if cfg.Source.Pages > 1 && cfg.Source.PageParam == "" {
		return fmt.Errorf("source.page_param is required when source.pages > 1")
	}
	if strings.TrimSpace(cfg.Source.CardSelector) == "" {
		return fmt.Errorf("source.card_selector must not be empty")
	}
	if len(cfg.Source.Fields) == 0 {
		return fmt.Errorf("source.fields must define at least one rule")
	}
	for i, rule := range cfg.Source.Fields {
		if err := validateFieldRule(rule); err != nil {
			return fmt.Errorf("source.fields[%d]: %w", i, err)
		}
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.RatePerSecond < 0 {
		return fmt.Errorf("fetcher.rate_per_second must be >= 0")
	}
	if cfg.Fetcher.RatePerSecond > 0 && cfg.Fetcher.Burst < 1 {
		return fmt.Errorf("fetcher.burst must be >= 1 when rate limiting, got %d", cfg.Fetcher.Burst)
	}

	if cfg.Detail.Enabled {
		if cfg.Detail.Concurrency < 1 || cfg.Detail.Concurrency > 64 {
			return fmt.Errorf("detail.concurrency must be 1-64, got %d", cfg.Detail.Concurrency)
		}
		if cfg.Detail.Kind != "css" && cfg.Detail.Kind != "xpath" {
			return fmt.Errorf("detail.kind must be 'css' or 'xpath', got %q", cfg.Detail.Kind)
		}
		if !strings.Contains(cfg.Detail.ValueTemplate, "%s") {
			return fmt.Errorf("detail.value_template must contain a %%s placeholder for the label")
		}
		seen := make(map[string]bool, len(cfg.Detail.Labels))
		for _, l := range cfg.Detail.Labels {
			if l.Label == "" || l.Key == "" {
				return fmt.Errorf("detail.labels entries need both label and key")
			}
			if seen[l.Key] {
				return fmt.Errorf("detail.labels key %q is declared twice", l.Key)
			}
			seen[l.Key] = true
		}
	}

	switch cfg.Cache.Type {
	case "none", "memory":
	case "memcache":
		if len(cfg.Cache.Servers) == 0 {
			return fmt.Errorf("cache.servers is required for memcache")
		}
	default:
		return fmt.Errorf("cache.type %q is not supported (valid: none, memory, memcache)", cfg.Cache.Type)
	}

	switch cfg.Index.Backend {
	case "memory":
	case "elasticsearch":
		if err := ValidateURL(cfg.Index.Address); err != nil {
			return fmt.Errorf("index.address: %w", err)
		}
	default:
		return fmt.Errorf("index.backend %q is not supported (valid: elasticsearch, memory)", cfg.Index.Backend)
	}
	if cfg.Index.Name == "" || cfg.Index.Name != strings.ToLower(cfg.Index.Name) {
		return fmt.Errorf("index.name must be a non-empty lowercase name, got %q", cfg.Index.Name)
	}

	if cfg.Marker.Label == "" {
		return fmt.Errorf("marker.label must not be empty")
	}
	if strings.ContainsAny(cfg.Marker.Label, `/\`) {
		return fmt.Errorf("marker.label must not contain path separators, got %q", cfg.Marker.Label)
	}
	switch cfg.Marker.Type {
	case "file":
		if cfg.Marker.Dir == "" {
			return fmt.Errorf("marker.dir is required for the file marker")
		}
	case "redis":
		if cfg.Marker.RedisAddr == "" {
			return fmt.Errorf("marker.redis_addr is required for the redis marker")
		}
	case "memory":
	default:
		return fmt.Errorf("marker.type must be 'file', 'redis' or 'memory', got %q", cfg.Marker.Type)
	}

	if len(cfg.Search.Fields) == 0 {
		return fmt.Errorf("search.fields must not be empty")
	}
	if cfg.Search.Size < 1 {
		return fmt.Errorf("search.size must be >= 1, got %d", cfg.Search.Size)
	}
	if cfg.Search.MinRatings < 0 {
		return fmt.Errorf("search.min_ratings must be >= 0")
	}
	if err := ValidateBuckets(cfg.Search.PriceBuckets); err != nil {
		return fmt.Errorf("search.price_buckets: %w", err)
	}

	if cfg.Export.Enabled {
		validExportTypes := map[string]bool{
			"json": true, "jsonl": true, "csv": true, "xlsx": true, "mongodb": true,
		}
		for _, kind := range strings.Split(cfg.Export.Type, ",") {
			kind = strings.TrimSpace(kind)
			if !validExportTypes[kind] {
				return fmt.Errorf("export.type %q is not supported (valid: json, jsonl, csv, xlsx, mongodb)", kind)
			}
			if kind == "mongodb" && cfg.Export.MongoURI == "" {
				return fmt.Errorf("export.mongo_uri is required for mongodb export")
			}
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

func validateFieldRule(rule FieldRule) error {
	switch rule.Key {
	case "title", "price", "rating_count", "link":
	default:
		return fmt.Errorf("unknown field key %q", rule.Key)
	}
	if rule.Selector == "" {
		return fmt.Errorf("selector must not be empty")
	}
	if rule.Kind != "css" && rule.Kind != "xpath" {
		return fmt.Errorf("kind must be 'css' or 'xpath', got %q", rule.Kind)
	}
	return nil
}

// ValidateBuckets checks that price buckets are ordered, contiguous and
// non-overlapping. Only the first bucket may be open below and only the last
// may be open above.
func ValidateBuckets(buckets []PriceBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("at least one bucket is required")
	}
	keys := make(map[string]bool, len(buckets))
	for i, b := range buckets {
		if b.Key == "" {
			return fmt.Errorf("bucket %d has no key", i)
		}
		if keys[b.Key] {
			return fmt.Errorf("bucket key %q is declared twice", b.Key)
		}
		keys[b.Key] = true

		if b.From == nil && i > 0 {
			return fmt.Errorf("bucket %q: only the first bucket may omit 'from'", b.Key)
		}
		if b.To == nil && i < len(buckets)-1 {
			return fmt.Errorf("bucket %q: only the last bucket may omit 'to'", b.Key)
		}
		if b.From != nil && b.To != nil && *b.From >= *b.To {
			return fmt.Errorf("bucket %q: from (%v) must be below to (%v)", b.Key, *b.From, *b.To)
		}
		if i > 0 && *buckets[i-1].To != *b.From {
			return fmt.Errorf("bucket %q: from (%v) must equal the previous bucket's to (%v)", b.Key, *b.From, *buckets[i-1].To)
		}
	}
	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
