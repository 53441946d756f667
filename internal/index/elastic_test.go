package index

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// fakeES implements the slice of the Elasticsearch REST API the backend uses.
type fakeES struct {
	mu         sync.Mutex
	exists     bool
	mappings   map[string]any
	docs       []map[string]any
	bulkQuery  string
	lastSearch map[string]any
	rejectBulk bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/products":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/products":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mappings, _ = body["mappings"].(map[string]any)
		f.exists = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case r.Method == http.MethodGet && r.URL.Path == "/products/_mapping":
		_ = json.NewEncoder(w).Encode(map[string]any{"products": map[string]any{"mappings": f.mappings}})
	case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
		f.bulkQuery = r.URL.RawQuery
		f.exists = true
		var items []any
		sc := bufio.NewScanner(r.Body)
		line := 0
		for sc.Scan() {
			line++
			if line%2 == 1 {
				continue
			}
			var d map[string]any
			_ = json.Unmarshal(sc.Bytes(), &d)
			if f.rejectBulk && len(items) == 1 {
				items = append(items, map[string]any{"index": map[string]any{
					"status": 400,
					"error":  map[string]any{"type": "mapper_parsing_exception", "reason": "bad prices"},
				}})
				continue
			}
			f.docs = append(f.docs, d)
			items = append(items, map[string]any{"index": map[string]any{"status": 201}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": f.rejectBulk, "items": items})
	case r.Method == http.MethodGet && r.URL.Path == "/products/_count":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(f.docs)})
	case r.Method == http.MethodPost && r.URL.Path == "/products/_search":
		_ = json.NewDecoder(r.Body).Decode(&f.lastSearch)
		_, _ = io.WriteString(w, `{
		  "hits": {
		    "total": {"value": 2, "relation": "eq"},
		    "hits": [
		      {"_id": "a1", "_score": 2.5, "_source": {"product_name": "SteelSeries Rival 3", "prices": [1299], "rating_count": "(250)", "attributes": {"dpi": "8500", "mouse_type": null}}},
		      {"_id": "b2", "_score": 1.1, "_source": {"product_name": "Steelseries Aerox 5", "prices": [45], "rating_count": null, "attributes": {}}}
		    ]
		  },
		  "aggregations": {"price_ranges": {"buckets": [
		    {"key": "low", "to": 50.0, "doc_count": 1},
		    {"key": "mid", "from": 50.0, "to": 1000.0, "doc_count": 0},
		    {"key": "high", "from": 1000.0, "doc_count": 1}
		  ]}}
		}`)
	case r.Method == http.MethodDelete && r.URL.Path == "/products":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists = false
		f.docs = nil
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	default:
		http.Error(w, `{"error":"unexpected request"}`, http.StatusMethodNotAllowed)
	}
}

func newFakeBackend(t *testing.T, fake *fakeES) *ElasticBackend {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().Index
	cfg.Address = srv.URL
	cfg.Timeout = 2 * time.Second
	return NewElasticBackend(&cfg, zerolog.Nop())
}

func TestElasticEnsureSchemaCreatesThenAccepts(t *testing.T) {
	fake := &fakeES{}
	b := newFakeBackend(t, fake)
	ctx := context.Background()

	require.NoError(t, b.EnsureSchema(ctx))
	require.True(t, fake.exists)

	props := fake.mappings["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object", "enabled": false}, props["attributes"])
	assert.Equal(t, map[string]any{"type": "keyword"}, props["rating_count"])

	// second call reads the mapping back and finds no conflict
	require.NoError(t, b.EnsureSchema(ctx))
}

func TestElasticEnsureSchemaConflict(t *testing.T) {
	fake := &fakeES{
		exists: true,
		mappings: map[string]any{"properties": map[string]any{
			"product_name": map[string]any{"type": "text"},
			"prices":       map[string]any{"type": "text"},
			"rating_count": map[string]any{"type": "keyword"},
			"attributes":   map[string]any{"type": "object", "enabled": false},
		}},
	}
	b := newFakeBackend(t, fake)

	err := b.EnsureSchema(context.Background())
	var conflict *types.SchemaConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "prices", conflict.Field)
	assert.Equal(t, "float", conflict.Want)
	assert.Equal(t, "text", conflict.Got)
}

func TestElasticUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	cfg := config.DefaultConfig().Index
	cfg.Address = addr
	cfg.Timeout = time.Second
	b := NewElasticBackend(&cfg, zerolog.Nop())

	assert.ErrorIs(t, b.EnsureSchema(context.Background()), types.ErrIndexUnreachable)
	_, err := b.Count(context.Background())
	assert.ErrorIs(t, err, types.ErrIndexUnreachable)
}

func TestElasticWriteBatchAndCount(t *testing.T) {
	fake := &fakeES{}
	b := newFakeBackend(t, fake)
	ctx := context.Background()

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "missing index counts as empty")

	written, err := b.WriteBatch(ctx, []types.Document{
		doc("SteelSeries Rival 3", types.FloatPtr(1299), types.StringPtr("(250)")),
		doc("Mystery mouse", nil, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, "refresh=true", fake.bulkQuery)

	require.Len(t, fake.docs, 2)
	assert.Equal(t, []any{1299.0}, fake.docs[0]["prices"])
	assert.Equal(t, []any{}, fake.docs[1]["prices"], "absent price is an empty list")
	assert.Nil(t, fake.docs[1]["rating_count"])

	n, err = b.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	written, err = b.WriteBatch(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestElasticWriteBatchPartialFailure(t *testing.T) {
	fake := &fakeES{rejectBulk: true}
	b := newFakeBackend(t, fake)

	written, err := b.WriteBatch(context.Background(), []types.Document{
		doc("a", types.FloatPtr(1), nil),
		doc("b", types.FloatPtr(2), nil),
		doc("c", types.FloatPtr(3), nil),
	})
	assert.Equal(t, 2, written)
	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestElasticSearch(t *testing.T) {
	fake := &fakeES{exists: true}
	b := newFakeBackend(t, fake)

	q := defaultQuery("steelseries")
	res, err := b.Search(context.Background(), q)
	require.NoError(t, err)

	// the request body is the query body after a JSON round trip
	raw, err := json.Marshal(q.Body())
	require.NoError(t, err)
	var want map[string]any
	require.NoError(t, json.Unmarshal(raw, &want))
	if diff := cmp.Diff(want, fake.lastSearch); diff != "" {
		t.Errorf("search body mismatch (-want +got):\n%s", diff)
	}

	assert.EqualValues(t, 2, res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "a1", res.Hits[0].ID)
	assert.Equal(t, "SteelSeries Rival 3", *res.Hits[0].Document.ProductName)
	assert.Equal(t, "8500", *res.Hits[0].Document.Attributes["dpi"])
	assert.Nil(t, res.Hits[1].Document.RatingCount)

	require.Len(t, res.Buckets, 3)
	assert.Equal(t, "high", res.Buckets[2].Key)
	assert.EqualValues(t, 1, res.Buckets[2].Count)
	assert.Nil(t, res.Buckets[2].To)
	assert.Equal(t, 50.0, *res.Buckets[0].To)
}

func TestElasticDrop(t *testing.T) {
	fake := &fakeES{exists: true}
	b := newFakeBackend(t, fake)
	ctx := context.Background()

	require.NoError(t, b.Drop(ctx))
	assert.False(t, fake.exists)
	require.NoError(t, b.Drop(ctx), "dropping a missing index is fine")
}

func TestNewBackend(t *testing.T) {
	cfg := config.DefaultConfig().Index
	b, err := New(&cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", b.Name())

	cfg.Backend = "memory"
	b, err = New(&cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())

	cfg.Backend = "solr"
	_, err = New(&cfg, zerolog.Nop())
	assert.True(t, err != nil && strings.Contains(err.Error(), "solr"))
}
