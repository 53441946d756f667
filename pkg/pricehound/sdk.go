// Package pricehound provides a public Go API for embedding the PriceHound
// scrape, index and search job in other programs.
//
// Usage:
//
//	h, err := pricehound.New(
//	    pricehound.WithURL("https://www.trendyol.com/sr?q=mouse"),
//	    pricehound.WithIndexBackend("memory"),
//	    pricehound.WithMinRatings(100),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//	report, err := h.Run(ctx, "steelseries")
package pricehound

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/cache"
	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/dataset"
	"github.com/IshaanNene/PriceHound/internal/fetcher"
	"github.com/IshaanNene/PriceHound/internal/index"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/marker"
	"github.com/IshaanNene/PriceHound/internal/parser"
	"github.com/IshaanNene/PriceHound/internal/pipeline"
	"github.com/IshaanNene/PriceHound/internal/search"
	"github.com/IshaanNene/PriceHound/internal/storage"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Hound runs the job for one configuration.
type Hound struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu sync.Mutex
	ix *index.Indexer
}

// Option configures a Hound.
type Option func(*config.Config)

// WithURL sets the listing URL.
func WithURL(u string) Option {
	return func(c *config.Config) { c.Source.URL = u }
}

// WithBaseURL sets the URL relative product links resolve against.
func WithBaseURL(u string) Option {
	return func(c *config.Config) { c.Source.BaseURL = u }
}

// WithRateLimit sets the request rate. Zero disables rate limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config.Config) {
		c.Fetcher.RatePerSecond = perSecond
		c.Fetcher.Burst = burst
	}
}

// WithPages sets the number of listing pages to scrape.
func WithPages(n int) Option {
	return func(c *config.Config) { c.Source.Pages = n }
}

// WithConcurrency sets the number of concurrent detail fetches.
func WithConcurrency(n int) Option {
	return func(c *config.Config) { c.Detail.Concurrency = n }
}

// WithoutDetails disables detail page enrichment.
func WithoutDetails() Option {
	return func(c *config.Config) { c.Detail.Enabled = false }
}

// WithBrowser switches to the headless browser fetcher.
func WithBrowser() Option {
	return func(c *config.Config) { c.Fetcher.Type = "browser" }
}

// WithIndexBackend selects "elasticsearch" or "memory".
func WithIndexBackend(name string) Option {
	return func(c *config.Config) { c.Index.Backend = name }
}

// WithElasticsearch points the index at an Elasticsearch node.
func WithElasticsearch(address, index string) Option {
	return func(c *config.Config) {
		c.Index.Backend = "elasticsearch"
		c.Index.Address = address
		if index != "" {
			c.Index.Name = index
		}
	}
}

// WithMarker sets the completion marker directory and label.
func WithMarker(dir, label string) Option {
	return func(c *config.Config) {
		c.Marker.Type = "file"
		c.Marker.Dir = dir
		if label != "" {
			c.Marker.Label = label
		}
	}
}

// WithSearchSize sets the number of hits returned.
func WithSearchSize(n int) Option {
	return func(c *config.Config) { c.Search.Size = n }
}

// WithMinRatings sets the rating count below which hits are flagged.
func WithMinRatings(n int) Option {
	return func(c *config.Config) { c.Search.MinRatings = n }
}

// WithExport enables dataset export. kinds is comma-separated.
func WithExport(kinds, dir string) Option {
	return func(c *config.Config) {
		c.Export.Enabled = true
		c.Export.Type = kinds
		if dir != "" {
			c.Export.OutputPath = dir
		}
	}
}

// WithLogLevel sets the log level: debug, info, warn or error.
func WithLogLevel(level string) Option {
	return func(c *config.Config) { c.Logging.Level = level }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// New creates a Hound from the default configuration and the options.
func New(opts ...Option) (*Hound, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return &Hound{
		cfg:    cfg,
		logger: logging.NewWithWriter(os.Stderr, cfg.Logging.Format, level),
	}, nil
}

// FromConfig creates a Hound from an already validated configuration.
func FromConfig(cfg *config.Config, logger zerolog.Logger) *Hound {
	return &Hound{cfg: cfg, logger: logger}
}

// Config returns the configuration in use.
func (h *Hound) Config() *config.Config { return h.cfg }

// Report is the outcome of one Run.
type Report struct {
	// Scrape is nil when the marker was already set.
	Scrape   *pipeline.Result
	Indexed  index.IndexResult
	Exported int
	Search   *search.Result

	SearchDuration time.Duration
	Duration       time.Duration
}

// Skipped reports whether indexing was skipped because of the marker.
func (r *Report) Skipped() bool { return r.Scrape == nil }

// Run ensures the index, scrapes and indexes unless the marker is set, and
// searches for query. A blank query matches every indexed product.
func (h *Hound) Run(ctx context.Context, query string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	ix, err := h.Indexer()
	if err != nil {
		return nil, err
	}

	if err := ix.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	done, err := ix.Done(ctx)
	if err != nil {
		return nil, err
	}

	if done {
		h.logger.Info().Str("label", h.cfg.Marker.Label).Msg("marker present, skipping scrape")
		report.Indexed.Skipped = true
	} else {
		report.Scrape, err = h.Scrape(ctx)
		if err != nil {
			return nil, err
		}
		// Export first: once the marker is set a failed export is never retried.
		report.Exported, err = h.Export(report.Scrape.Products)
		if err != nil {
			return nil, err
		}
		report.Indexed, err = ix.IndexOnce(ctx, report.Scrape.Products)
		if err != nil {
			return nil, fmt.Errorf("index products: %w", err)
		}
	}

	searchStart := time.Now()
	report.Search, err = h.Search(ctx, ix.Backend(), query)
	if err != nil {
		return nil, err
	}
	report.SearchDuration = time.Since(searchStart)
	report.Duration = time.Since(start)
	return report, nil
}

// Search queries an open backend with the configured search settings.
func (h *Hound) Search(ctx context.Context, backend index.Backend, query string) (*search.Result, error) {
	res, err := search.New(backend, &h.cfg.Search, h.logger).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// Scrape builds the fetch pipeline from the configuration and runs it.
func (h *Hound) Scrape(ctx context.Context) (*pipeline.Result, error) {
	f, err := fetcher.New(h.cfg, h.logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	stats := &pipeline.Stats{}
	opts := []pipeline.Option{pipeline.WithStats(stats)}

	if h.cfg.Detail.Enabled {
		dp, err := parser.NewDetailParser(&h.cfg.Detail, h.logger)
		if err != nil {
			return nil, fmt.Errorf("create detail parser: %w", err)
		}
		c, err := cache.New(&h.cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		df := pipeline.NewDetailFetcher(f, dp, c, h.cfg.Cache.TTL, stats, h.logger)
		opts = append(opts, pipeline.WithDetailFetcher(df, h.cfg.Detail.Concurrency))
	}

	p, err := pipeline.New(&h.cfg.Source, f, h.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	res, err := p.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", h.cfg.Source.URL, err)
	}
	return res, nil
}

// Indexer returns the index backend and completion marker. They are opened
// on first use and shared until Close. The in-memory index always gets an
// in-memory marker so both share the Hound's lifetime.
func (h *Hound) Indexer() (*index.Indexer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ix != nil {
		return h.ix, nil
	}

	backend, err := index.New(&h.cfg.Index, h.logger)
	if err != nil {
		return nil, err
	}
	mcfg := h.cfg.Marker
	if h.cfg.Index.Backend == "memory" && mcfg.Type != "memory" {
		h.logger.Info().Str("marker_type", mcfg.Type).Msg("in-memory index, using an in-memory marker")
		mcfg.Type = "memory"
	}
	mk, err := marker.New(&mcfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	h.ix = index.NewIndexer(backend, mk, h.logger)
	return h.ix, nil
}

// Close releases the index backend and the marker.
func (h *Hound) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ix == nil {
		return nil
	}
	err := h.ix.Close()
	h.ix = nil
	return err
}

// Export writes the products as dataset rows and returns the row count.
// It does nothing when export is disabled.
func (h *Hound) Export(products []*types.Product) (int, error) {
	if !h.cfg.Export.Enabled {
		return 0, nil
	}
	store, err := storage.Open(&h.cfg.Export, h.logger)
	if err != nil {
		return 0, fmt.Errorf("create storage: %w", err)
	}
	rows := dataset.FromProducts(products)
	if err := store.Store(rows); err != nil {
		store.Close()
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := store.Close(); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(rows), nil
}
