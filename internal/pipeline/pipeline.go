// Package pipeline scrapes listing pages into normalized products.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/fetcher"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/parser"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Listing is the outcome of scraping one listing page. OK is false when the
// page could not be fetched; that is "no data", not an error.
type Listing struct {
	URL        string
	Products   []*types.Product
	SortOption *string
	OK         bool
}

// Result aggregates a multi-page scrape.
type Result struct {
	Products   []*types.Product
	SortOption *string
	Pages      int
	Failed     int
	Duration   time.Duration
}

// Pipeline fetches listing pages, extracts cards, and enriches them from
// their detail pages.
type Pipeline struct {
	src         *config.SourceConfig
	fetcher     fetcher.Fetcher
	extractor   *parser.Extractor
	detail      *DetailFetcher
	concurrency int
	chain       *Chain
	cardSel     cascadia.Selector
	sortSel     cascadia.Selector
	stats       *Stats
	logger      zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDetailFetcher enables detail enrichment with at most concurrency
// simultaneous detail fetches.
func WithDetailFetcher(d *DetailFetcher, concurrency int) Option {
	return func(p *Pipeline) {
		p.detail = d
		p.concurrency = concurrency
	}
}

// WithChain replaces the default normalizing middleware chain.
func WithChain(c *Chain) Option {
	return func(p *Pipeline) { p.chain = c }
}

// WithStats shares a Stats instance with the pipeline.
func WithStats(s *Stats) Option {
	return func(p *Pipeline) { p.stats = s }
}

// New creates a Pipeline for the source. Selectors are compiled up front so a
// bad configuration fails before any request is sent.
func New(src *config.SourceConfig, f fetcher.Fetcher, logger zerolog.Logger, opts ...Option) (*Pipeline, error) {
	extractor, err := parser.NewExtractor(src, logger)
	if err != nil {
		return nil, err
	}
	cardSel, err := cascadia.Compile(src.CardSelector)
	if err != nil {
		return nil, fmt.Errorf("card selector %q: %w", src.CardSelector, err)
	}

	p := &Pipeline{
		src:         src,
		fetcher:     f,
		extractor:   extractor,
		cardSel:     cardSel,
		concurrency: 1,
		logger:      logging.Component(logger, "pipeline"),
	}

	if src.SortSelector != "" {
		p.sortSel, err = cascadia.Compile(src.SortSelector)
		if err != nil {
			return nil, fmt.Errorf("sort selector %q: %w", src.SortSelector, err)
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	if p.chain == nil {
		p.chain = DefaultChain(logger)
	}
	if p.stats == nil {
		p.stats = &Stats{}
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	return p, nil
}

// Stats returns the pipeline's counters.
func (p *Pipeline) Stats() *Stats { return p.stats }

// ScrapeListing fetches one listing page and returns one product per card,
// in card order.
func (p *Pipeline) ScrapeListing(ctx context.Context, listingURL string) Listing {
	listing := Listing{URL: listingURL}
	p.stats.Listings.Add(1)

	req, err := types.NewRequest(listingURL, types.TagListing)
	if err != nil {
		p.stats.ListingFailures.Add(1)
		p.logger.Error().Err(err).Msg("invalid listing url")
		return listing
	}

	resp, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		p.stats.ListingFailures.Add(1)
		p.logger.Warn().Err(err).Str("url", listingURL).Msg("listing fetch failed, no data")
		return listing
	}

	doc, err := resp.Document()
	if err != nil {
		p.stats.ListingFailures.Add(1)
		p.logger.Warn().Err(err).Str("url", listingURL).Msg("listing page unparseable, no data")
		return listing
	}
	listing.OK = true

	if p.sortSel != nil {
		if label := strings.Join(strings.Fields(doc.FindMatcher(p.sortSel).First().Text()), " "); label != "" {
			listing.SortOption = &label
		}
	}

	cards := doc.FindMatcher(p.cardSel)
	products := make([]*types.Product, cards.Length())
	cards.Each(func(i int, card *goquery.Selection) {
		products[i] = p.extractor.Extract(card, resp.FinalURL, i)
	})
	p.stats.Cards.Add(int64(len(products)))

	if p.detail != nil {
		p.enrich(ctx, products)
	}

	for _, prod := range products {
		p.chain.Process(prod)
	}

	listing.Products = products
	p.logger.Info().
		Str("url", listingURL).
		Int("cards", len(products)).
		Dur("fetch", resp.FetchDuration).
		Msg("listing scraped")
	return listing
}

// enrich fetches detail attributes with bounded concurrency. Each worker
// writes only its own product, so card order is preserved.
func (p *Pipeline) enrich(ctx context.Context, products []*types.Product) {
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for _, prod := range products {
		if prod.Link == "" {
			continue
		}
		g.Go(func() error {
			prod.Attributes = p.detail.FetchAttributes(ctx, prod.Link)
			return nil
		})
	}
	_ = g.Wait()
}

// Scrape scrapes the configured listing and its following pages. It returns
// types.ErrNoData when no page could be fetched.
func (p *Pipeline) Scrape(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	pages := p.src.Pages
	if pages < 1 {
		pages = 1
	}

	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL, err := PageURL(p.src.URL, p.src.PageParam, n)
		if err != nil {
			return nil, err
		}

		listing := p.ScrapeListing(ctx, pageURL)
		res.Pages++
		if !listing.OK {
			res.Failed++
			continue
		}
		if res.SortOption == nil {
			res.SortOption = listing.SortOption
		}
		res.Products = append(res.Products, listing.Products...)
	}

	res.Duration = time.Since(start)
	p.logger.Info().
		Int("pages", res.Pages).
		Int("failed", res.Failed).
		Int("products", len(res.Products)).
		Dur("duration", res.Duration).
		Object("stats", p.stats).
		Msg("scrape complete")

	if res.Failed == res.Pages {
		return res, types.ErrNoData
	}
	return res, nil
}

// PageURL returns the URL of page n. Page 1 is the listing URL unchanged.
func PageURL(listingURL, param string, n int) (string, error) {
	if n <= 1 || param == "" {
		return listingURL, nil
	}
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", types.ErrInvalidURL, listingURL, err)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
