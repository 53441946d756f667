// Package index stores product documents in a search index and queries them.
//
// Two backends share the same query semantics: Elasticsearch over its REST
// API, and an in-process memory index used for offline runs and tests.
package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/config"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Backend is a search index holding product documents.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// EnsureSchema creates the index with the product schema when it is
	// missing. An existing index with a different mapping is a
	// *types.SchemaConflictError.
	EnsureSchema(ctx context.Context) error

	// WriteBatch inserts documents and returns how many were stored.
	// Documents are never deduplicated.
	WriteBatch(ctx context.Context, docs []types.Document) (int, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int64, error)

	// Search runs the product query.
	Search(ctx context.Context, q Query) (*SearchResult, error)

	// Drop deletes the index. Dropping a missing index is not an error.
	Drop(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Hit is one matching document.
type Hit struct {
	ID       string
	Score    float64
	Document types.Document
}

// Bucket is one price range of the aggregation. A nil bound is open.
type Bucket struct {
	Key   string
	From  *float64
	To    *float64
	Count int64
}

// SearchResult holds the top hits and the price aggregation over every match.
type SearchResult struct {
	Total   int64
	Hits    []Hit
	Buckets []Bucket
}

// New creates the backend selected by cfg.Backend.
func New(cfg *config.IndexConfig, logger zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "elasticsearch":
		return NewElasticBackend(cfg, logger), nil
	case "memory":
		return NewMemoryBackend(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
