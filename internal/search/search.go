// Package search runs the product query and renders its results.
package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/index"
	"github.com/IshaanNene/PriceHound/internal/logging"
)

// Hit is one ranked product.
type Hit struct {
	Title       *string
	Prices      []float64
	RatingCount *string
	Attributes  map[string]*string
	Score       float64

	// Ratings is the parsed rating count; RatingsKnown is false when the
	// count was absent or unparseable.
	Ratings      int
	RatingsKnown bool

	// LowConfidence is set when a known rating count is below the threshold.
	LowConfidence bool
}

// Result is the outcome of one query.
type Result struct {
	Query      string
	Total      int64
	Hits       []Hit
	Buckets    []index.Bucket
	MinRatings int
	Took       time.Duration
}

// Searcher runs the configured query against an index backend.
type Searcher struct {
	backend index.Backend
	cfg     *config.SearchConfig
	logger  zerolog.Logger
}

// New creates a Searcher.
func New(b index.Backend, cfg *config.SearchConfig, logger zerolog.Logger) *Searcher {
	return &Searcher{
		backend: b,
		cfg:     cfg,
		logger:  logging.Component(logger, "searcher"),
	}
}

// Query searches for text and returns the top hits with the price buckets.
func (s *Searcher) Query(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	res, err := s.backend.Search(ctx, index.QueryFromConfig(s.cfg, text))
	if err != nil {
		return nil, err
	}

	out := &Result{
		Query:      text,
		Total:      res.Total,
		Buckets:    res.Buckets,
		MinRatings: s.cfg.MinRatings,
		Hits:       make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{
			Title:       h.Document.ProductName,
			Prices:      h.Document.Prices,
			RatingCount: h.Document.RatingCount,
			Attributes:  h.Document.Attributes,
			Score:       h.Score,
		}
		hit.Ratings, hit.RatingsKnown = ParseRatingCount(h.Document.RatingCount)
		hit.LowConfidence = hit.RatingsKnown && hit.Ratings < s.cfg.MinRatings
		out.Hits = append(out.Hits, hit)
	}
	out.Took = time.Since(start)

	s.logger.Info().
		Str("query", text).
		Int64("total", out.Total).
		Int("hits", len(out.Hits)).
		Dur("took", out.Took).
		Msg("search complete")
	return out, nil
}

// ParseRatingCount reads a rating token such as "(1.234)". It reports false
// for absent or unparseable values.
func ParseRatingCount(raw *string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '.', ',', ' ', '\u00a0':
			return -1
		}
		return r
	}, *raw)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
