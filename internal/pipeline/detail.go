package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/cache"
	"github.com/IshaanNene/PriceHound/internal/fetcher"
	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/parser"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// DetailFetcher loads a product's detail page and reads its attribute rows.
type DetailFetcher struct {
	fetcher fetcher.Fetcher
	parser  *parser.DetailParser
	cache   cache.CacheService
	ttl     time.Duration
	stats   *Stats
	logger  zerolog.Logger
}

// NewDetailFetcher creates a DetailFetcher. c may be nil to disable caching.
func NewDetailFetcher(f fetcher.Fetcher, p *parser.DetailParser, c cache.CacheService, ttl time.Duration, stats *Stats, logger zerolog.Logger) *DetailFetcher {
	if stats == nil {
		stats = &Stats{}
	}
	return &DetailFetcher{
		fetcher: f,
		parser:  p,
		cache:   c,
		ttl:     ttl,
		stats:   stats,
		logger:  logging.Component(logger, "detail_fetcher"),
	}
}

// FetchAttributes returns the attribute map for link. Any fetch failure,
// including a timeout, yields an empty map and is only logged.
func (d *DetailFetcher) FetchAttributes(ctx context.Context, link string) map[string]*string {
	if attrs, ok := d.cached(link); ok {
		d.stats.DetailCacheHits.Add(1)
		return attrs
	}

	d.stats.DetailFetches.Add(1)

	req, err := types.NewRequest(link, types.TagDetail)
	if err != nil {
		d.stats.DetailFailures.Add(1)
		d.logger.Warn().Err(err).Str("url", link).Msg("skipping detail page")
		return map[string]*string{}
	}

	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		d.stats.DetailFailures.Add(1)
		event := d.logger.Warn().Err(err).Str("url", link)
		var fe *types.FetchError
		if errors.As(err, &fe) && fe.StatusCode > 0 {
			event = event.Int("status", fe.StatusCode)
		}
		event.Msg("detail fetch failed, attributes left empty")
		return map[string]*string{}
	}

	attrs, err := d.parser.Parse(resp.Body)
	if err != nil {
		d.stats.DetailFailures.Add(1)
		d.logger.Warn().Err(err).Str("url", link).Msg("detail page unparseable, attributes left empty")
		return map[string]*string{}
	}

	d.store(link, attrs)
	return attrs
}

func (d *DetailFetcher) cached(link string) (map[string]*string, bool) {
	if d.cache == nil {
		return nil, false
	}
	raw, err := d.cache.Get(cache.DetailKey(link))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			d.logger.Debug().Err(err).Msg("detail cache unavailable")
		}
		return nil, false
	}
	var attrs map[string]*string
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, false
	}
	return attrs, true
}

func (d *DetailFetcher) store(link string, attrs map[string]*string) {
	if d.cache == nil {
		return
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return
	}
	if err := d.cache.Set(cache.DetailKey(link), raw, d.ttl); err != nil {
		d.logger.Debug().Err(err).Msg("detail cache write failed")
	}
}
