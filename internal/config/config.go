package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for PriceHound.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"  yaml:"source"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Detail  DetailConfig  `mapstructure:"detail"  yaml:"detail"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache"`
	Index   IndexConfig   `mapstructure:"index"   yaml:"index"`
	Marker  MarkerConfig  `mapstructure:"marker"  yaml:"marker"`
	Search  SearchConfig  `mapstructure:"search"  yaml:"search"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SourceConfig describes the listing page and how its cards are read.
type SourceConfig struct {
	URL              string      `mapstructure:"url"               yaml:"url"`
	BaseURL          string      `mapstructure:"base_url"          yaml:"base_url"`
	Pages            int         `mapstructure:"pages"             yaml:"pages"`
	PageParam        string      `mapstructure:"page_param"        yaml:"page_param"`
	CardSelector     string      `mapstructure:"card_selector"     yaml:"card_selector"`
	SortSelector     string      `mapstructure:"sort_selector"     yaml:"sort_selector"`
	CurrencySuffixes []string    `mapstructure:"currency_suffixes" yaml:"currency_suffixes"`
	Fields           []FieldRule `mapstructure:"fields"            yaml:"fields"`
}

// FieldRule defines a single card extraction rule.
type FieldRule struct {
	Key       string `mapstructure:"key"       yaml:"key"`
	Selector  string `mapstructure:"selector"  yaml:"selector"`
	Kind      string `mapstructure:"kind"      yaml:"kind"` // css, xpath
	Attribute string `mapstructure:"attribute" yaml:"attribute"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type             string        `mapstructure:"type"               yaml:"type"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"    yaml:"request_timeout"`
	UserAgents       []string      `mapstructure:"user_agents"        yaml:"user_agents"`
	MaxBodySize      int64         `mapstructure:"max_body_size"      yaml:"max_body_size"`
	MaxRedirects     int           `mapstructure:"max_redirects"      yaml:"max_redirects"`
	RatePerSecond    float64       `mapstructure:"rate_per_second"    yaml:"rate_per_second"`
	Burst            int           `mapstructure:"burst"              yaml:"burst"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
	IdleConnTimeout  time.Duration `mapstructure:"idle_conn_timeout"  yaml:"idle_conn_timeout"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"     yaml:"max_idle_conns"`
}

// DetailConfig controls detail-page enrichment.
type DetailConfig struct {
	Enabled       bool        `mapstructure:"enabled"        yaml:"enabled"`
	Concurrency   int         `mapstructure:"concurrency"    yaml:"concurrency"`
	Kind          string      `mapstructure:"kind"           yaml:"kind"` // css, xpath
	ValueTemplate string      `mapstructure:"value_template" yaml:"value_template"`
	CollectAll    bool        `mapstructure:"collect_all"    yaml:"collect_all"`
	RowSelector   string      `mapstructure:"row_selector"   yaml:"row_selector"`
	RowLabel      string      `mapstructure:"row_label"      yaml:"row_label"`
	RowValue      string      `mapstructure:"row_value"      yaml:"row_value"`
	Labels        []LabelRule `mapstructure:"labels"         yaml:"labels"`
}

// LabelRule maps a visible attribute label to a record key.
type LabelRule struct {
	Label string `mapstructure:"label" yaml:"label"`
	Key   string `mapstructure:"key"   yaml:"key"`
}

// CacheConfig controls the detail attribute cache.
type CacheConfig struct {
	Type    string        `mapstructure:"type"    yaml:"type"` // none, memory, memcache
	Servers []string      `mapstructure:"servers" yaml:"servers"`
	TTL     time.Duration `mapstructure:"ttl"     yaml:"ttl"`
}

// IndexConfig controls the search index.
type IndexConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"` // elasticsearch, memory
	Address string        `mapstructure:"address" yaml:"address"`
	Name    string        `mapstructure:"name"    yaml:"name"`
	Refresh bool          `mapstructure:"refresh" yaml:"refresh"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MarkerConfig controls the indexing completion marker.
type MarkerConfig struct {
	Type      string `mapstructure:"type"       yaml:"type"` // file, redis, memory
	Label     string `mapstructure:"label"      yaml:"label"`
	Dir       string `mapstructure:"dir"        yaml:"dir"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"   yaml:"redis_db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// SearchConfig controls the query issued against the index.
type SearchConfig struct {
	Query        string        `mapstructure:"query"         yaml:"query"`
	Fields       []string      `mapstructure:"fields"        yaml:"fields"`
	Size         int           `mapstructure:"size"          yaml:"size"`
	MinRatings   int           `mapstructure:"min_ratings"   yaml:"min_ratings"`
	PriceBuckets []PriceBucket `mapstructure:"price_buckets" yaml:"price_buckets"`
}

// PriceBucket is one range of the price aggregation. A nil bound is open.
type PriceBucket struct {
	Key  string   `mapstructure:"key"  yaml:"key"`
	From *float64 `mapstructure:"from" yaml:"from"`
	To   *float64 `mapstructure:"to"   yaml:"to"`
}

// ExportConfig controls the tabular dataset export.
type ExportConfig struct {
	Enabled    bool   `mapstructure:"enabled"     yaml:"enabled"`
	Type       string `mapstructure:"type"        yaml:"type"` // json, jsonl, csv, xlsx, mongodb
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	Database   string `mapstructure:"database"    yaml:"database"`
	Collection string `mapstructure:"collection"  yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

func bound(v float64) *float64 { return &v }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			URL:              "https://www.trendyol.com/sr/oyuncu-mouselari-x-c106088?sst=BEST_SELLER",
			BaseURL:          "https://www.trendyol.com",
			Pages:            1,
			PageParam:        "page",
			CardSelector:     "div.p-card-chldrn-cntnr.card-border",
			SortSelector:     "div.selected-order",
			CurrencySuffixes: []string{"TL", "₺"},
			Fields:           DefaultFieldRules(),
		},
		Fetcher: FetcherConfig{
			Type:           "http",
			RequestTimeout: 15 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize:      10 * 1024 * 1024, // 10MB
			MaxRedirects:     10,
			RatePerSecond:    2,
			Burst:            4,
			RespectRobotsTxt: false,
			IdleConnTimeout:  90 * time.Second,
			MaxIdleConns:     20,
		},
		Detail: DetailConfig{
			Enabled:       true,
			Concurrency:   4,
			Kind:          "css",
			ValueTemplate: `span[title="%s"] + span.attribute-value > div.attr-name.attr-name-w`,
			RowSelector:   "li.detail-attr-item",
			RowLabel:      "span[title]",
			RowValue:      "span.attribute-value",
			Labels: []LabelRule{
				{Label: "Mouse Hassasiyeti (Dpi)", Key: "dpi"},
				{Label: "RGB Aydınlatma", Key: "rgb_lighting"},
				{Label: "Mouse Tipi", Key: "mouse_type"},
				{Label: "Buton Sayısı", Key: "button_count"},
			},
		},
		Cache: CacheConfig{
			Type:    "none",
			Servers: []string{"localhost:11211"},
			TTL:     6 * time.Hour,
		},
		Index: IndexConfig{
			Backend: "elasticsearch",
			Address: "http://localhost:9200",
			Name:    "products",
			Refresh: true,
			Timeout: 30 * time.Second,
		},
		Marker: MarkerConfig{
			Type:      "file",
			Label:     "indexing_done_81",
			Dir:       "./flags",
			RedisAddr: "localhost:6379",
			KeyPrefix: "pricehound:marker",
		},
		Search: SearchConfig{
			Query:      "steelseries",
			Fields:     []string{"product_name^3", "rating_count"},
			Size:       10,
			MinRatings: 100,
			PriceBuckets: []PriceBucket{
				{Key: "low", To: bound(50)},
				{Key: "mid", From: bound(50), To: bound(1000)},
				{Key: "high", From: bound(1000)},
			},
		},
		Export: ExportConfig{
			Enabled:    false,
			Type:       "csv",
			OutputPath: "./output",
			MongoURI:   "mongodb://localhost:27017",
			Database:   "pricehound",
			Collection: "products",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// DefaultFieldRules returns the card rule table for the default listing.
func DefaultFieldRules() []FieldRule {
	return []FieldRule{
		{Key: "title", Selector: "h3.prdct-desc-cntnr-ttl-w span.prdct-desc-cntnr-ttl", Kind: "css"},
		{Key: "title", Selector: "h3.prdct-desc-cntnr-ttl-w span.prdct-desc-cntnr-name", Kind: "css"},
		{Key: "title", Selector: "h3.prdct-desc-cntnr-ttl-w div.product-desc-sub-text", Kind: "css"},
		{Key: "price", Selector: "div.prc-box-dscntd", Kind: "css"},
		{Key: "rating_count", Selector: "span.ratingCount", Kind: "css"},
		{Key: "link", Selector: "a", Kind: "css", Attribute: "href"},
	}
}
