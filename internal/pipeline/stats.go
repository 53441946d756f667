package pipeline

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Stats tracks scrape counters across concurrent detail fetches.
type Stats struct {
	Listings        atomic.Int64
	ListingFailures atomic.Int64
	Cards           atomic.Int64
	DetailFetches   atomic.Int64
	DetailFailures  atomic.Int64
	DetailCacheHits atomic.Int64
}

// MarshalZerologObject lets Stats be logged with Object("stats", s).
func (s *Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("listings", s.Listings.Load()).
		Int64("listing_failures", s.ListingFailures.Load()).
		Int64("cards", s.Cards.Load()).
		Int64("detail_fetches", s.DetailFetches.Load()).
		Int64("detail_failures", s.DetailFailures.Load()).
		Int64("detail_cache_hits", s.DetailCacheHits.Load())
}
