package index

import (
	"strings"

	"github.com/IshaanNene/PriceHound/internal/config"
)

// PriceAggregation names the range aggregation over prices.
const PriceAggregation = "price_ranges"

// Query is the product search: fuzzy text over Fields, products with a
// non-negative price only, and a range aggregation over Buckets.
type Query struct {
	Text    string
	Fields  []string
	Size    int
	Buckets []config.PriceBucket
}

// QueryFromConfig builds a Query for text from the search settings.
func QueryFromConfig(cfg *config.SearchConfig, text string) Query {
	return Query{
		Text:    text,
		Fields:  cfg.Fields,
		Size:    cfg.Size,
		Buckets: cfg.PriceBuckets,
	}
}

// Body returns the Elasticsearch request body for q. Blank text matches every
// document.
func (q Query) Body() map[string]any {
	var match map[string]any
	if strings.TrimSpace(q.Text) == "" {
		match = map[string]any{"match_all": map[string]any{}}
	} else {
		match = map[string]any{
			"multi_match": map[string]any{
				"query":     q.Text,
				"fields":    q.Fields,
				"fuzziness": "AUTO",
			},
		}
	}

	ranges := make([]any, 0, len(q.Buckets))
	for _, b := range q.Buckets {
		r := map[string]any{"key": b.Key}
		if b.From != nil {
			r["from"] = *b.From
		}
		if b.To != nil {
			r["to"] = *b.To
		}
		ranges = append(ranges, r)
	}

	return map[string]any{
		"size":             q.Size,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{match},
				"filter": []any{
					map[string]any{"range": map[string]any{"prices": map[string]any{"gte": 0}}},
				},
			},
		},
		"aggs": map[string]any{
			PriceAggregation: map[string]any{
				"range": map[string]any{
					"field":  "prices",
					"ranges": ranges,
				},
			},
		},
	}
}
