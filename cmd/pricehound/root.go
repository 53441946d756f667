package main

import (
	"fmt"
	"io"
	"strings"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/pkg/pricehound"
)

// options holds every flag value. Zero values mean "not set".
type options struct {
	cfgFile string
	verbose bool

	indexBackend string
	indexAddress string
	indexName    string
	markerLabel  string

	url         string
	pages       int
	concurrency int
	fetcherType string
	export      string
	output      string

	size       int
	minRatings int
}

// overrides returns the flag values as a sparse config for merging.
func (o *options) overrides() *config.Config {
	ov := &config.Config{}
	ov.Index.Backend = o.indexBackend
	ov.Index.Address = o.indexAddress
	ov.Index.Name = o.indexName
	ov.Marker.Label = o.markerLabel
	ov.Source.URL = o.url
	ov.Source.Pages = o.pages
	ov.Detail.Concurrency = o.concurrency
	ov.Fetcher.Type = strings.ToLower(o.fetcherType)
	ov.Export.Type = strings.ToLower(o.export)
	ov.Export.OutputPath = o.output
	ov.Search.Size = o.size
	ov.Search.MinRatings = o.minRatings
	return ov
}

// app is the loaded configuration and root logger for one command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
	out    io.Writer
	hound  *pricehound.Hound
}

func newApp(cmd *cobra.Command, o *options) (*app, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := mergo.Merge(cfg, o.overrides(), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("apply flags: %w", err)
	}
	if o.export != "" {
		cfg.Export.Enabled = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, o.verbose)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()

	return &app{
		cfg:    cfg,
		logger: logger,
		closer: closer,
		out:    cmd.OutOrStdout(),
		hound:  pricehound.FromConfig(cfg, logger),
	}, nil
}

func (a *app) Close() error {
	herr := a.hound.Close()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			return err
		}
	}
	return herr
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "pricehound",
		Short: "PriceHound — product listing scraper with fuzzy price search",
		Long: `PriceHound scrapes product cards from a listing page, enriches them from
their detail pages, indexes them once per run label and searches them.

Features:
  • Declarative CSS/XPath field rules for listing cards and detail pages
  • Bounded concurrent detail fetches with a memcache-backed cache
  • Elasticsearch or in-memory index guarded by a completion marker
  • Fuzzy multi-field search with price range buckets
  • JSON, JSONL, CSV, XLSX and MongoDB dataset export`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&o.cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&o.indexBackend, "index-backend", "", "index backend: elasticsearch, memory")
	rootCmd.PersistentFlags().StringVar(&o.indexAddress, "es", "", "Elasticsearch address")
	rootCmd.PersistentFlags().StringVar(&o.indexName, "index", "", "index name")
	rootCmd.PersistentFlags().StringVar(&o.markerLabel, "label", "", "completion marker label")

	rootCmd.AddCommand(runCmd(o))
	rootCmd.AddCommand(scrapeCmd(o))
	rootCmd.AddCommand(searchCmd(o))
	rootCmd.AddCommand(indexCmd(o))
	rootCmd.AddCommand(markerCmd(o))
	rootCmd.AddCommand(configCmd(o))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// scrapeFlags registers the flags shared by run and scrape.
func scrapeFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().StringVarP(&o.url, "url", "u", "", "listing URL")
	cmd.Flags().IntVarP(&o.pages, "pages", "p", 0, "number of listing pages")
	cmd.Flags().IntVarP(&o.concurrency, "concurrency", "n", 0, "concurrent detail fetches")
	cmd.Flags().StringVar(&o.fetcherType, "fetcher", "", "fetcher type: http, browser")
	cmd.Flags().StringVarP(&o.export, "export", "e", "", "export formats, comma-separated: json, jsonl, csv, xlsx, mongodb")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "export output directory")
}

// searchFlags registers the flags shared by run and search.
func searchFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().IntVar(&o.size, "size", 0, "number of hits to show")
	cmd.Flags().IntVar(&o.minRatings, "min-ratings", 0, "rating count below which a hit is flagged")
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "PriceHound %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg
			w := a.out
			fmt.Fprintf(w, "Source:\n")
			fmt.Fprintf(w, "  URL:               %s\n", cfg.Source.URL)
			fmt.Fprintf(w, "  Pages:             %d\n", cfg.Source.Pages)
			fmt.Fprintf(w, "  Card Selector:     %s\n", cfg.Source.CardSelector)
			fmt.Fprintf(w, "  Field Rules:       %d configured\n", len(cfg.Source.Fields))
			fmt.Fprintf(w, "\nFetcher:\n")
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Fprintf(w, "  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Fprintf(w, "  Rate:              %.2f/s (burst %d)\n", cfg.Fetcher.RatePerSecond, cfg.Fetcher.Burst)
			fmt.Fprintf(w, "  Respect robots.txt: %v\n", cfg.Fetcher.RespectRobotsTxt)
			fmt.Fprintf(w, "\nDetail:\n")
			fmt.Fprintf(w, "  Enabled:           %v\n", cfg.Detail.Enabled)
			fmt.Fprintf(w, "  Concurrency:       %d\n", cfg.Detail.Concurrency)
			fmt.Fprintf(w, "  Labels:            %d configured\n", len(cfg.Detail.Labels))
			fmt.Fprintf(w, "\nCache:\n")
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Cache.Type)
			fmt.Fprintf(w, "\nIndex:\n")
			fmt.Fprintf(w, "  Backend:           %s\n", cfg.Index.Backend)
			fmt.Fprintf(w, "  Address:           %s\n", cfg.Index.Address)
			fmt.Fprintf(w, "  Name:              %s\n", cfg.Index.Name)
			fmt.Fprintf(w, "\nMarker:\n")
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Marker.Type)
			fmt.Fprintf(w, "  Label:             %s\n", cfg.Marker.Label)
			fmt.Fprintf(w, "\nSearch:\n")
			fmt.Fprintf(w, "  Default Query:     %s\n", cfg.Search.Query)
			fmt.Fprintf(w, "  Fields:            %s\n", strings.Join(cfg.Search.Fields, ", "))
			fmt.Fprintf(w, "  Size:              %d\n", cfg.Search.Size)
			fmt.Fprintf(w, "  Min Ratings:       %d\n", cfg.Search.MinRatings)
			fmt.Fprintf(w, "  Price Buckets:     %d\n", len(cfg.Search.PriceBuckets))
			fmt.Fprintf(w, "\nExport:\n")
			fmt.Fprintf(w, "  Enabled:           %v\n", cfg.Export.Enabled)
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Export.Type)
			fmt.Fprintf(w, "  Output Path:       %s\n", cfg.Export.OutputPath)
			return nil
		},
	}
}
