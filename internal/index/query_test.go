package index

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/IshaanNene/PriceHound/internal/config"
)

func TestQueryBodyDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	q := QueryFromConfig(&cfg.Search, "steelseries")

	want := map[string]any{
		"size":             10,
		"track_total_hits": true,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":     "steelseries",
						"fields":    []string{"product_name^3", "rating_count"},
						"fuzziness": "AUTO",
					}},
				},
				"filter": []any{
					map[string]any{"range": map[string]any{"prices": map[string]any{"gte": 0}}},
				},
			},
		},
		"aggs": map[string]any{
			"price_ranges": map[string]any{
				"range": map[string]any{
					"field": "prices",
					"ranges": []any{
						map[string]any{"key": "low", "to": 50.0},
						map[string]any{"key": "mid", "from": 50.0, "to": 1000.0},
						map[string]any{"key": "high", "from": 1000.0},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, q.Body()); diff != "" {
		t.Errorf("query body mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryBodyBlankTextMatchesAll(t *testing.T) {
	cfg := config.DefaultConfig()
	body := QueryFromConfig(&cfg.Search, "  ").Body()

	must := body["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	if diff := cmp.Diff([]any{map[string]any{"match_all": map[string]any{}}}, must); diff != "" {
		t.Errorf("must clause mismatch (-want +got):\n%s", diff)
	}
}
