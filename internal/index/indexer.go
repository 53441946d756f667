package index

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/IshaanNene/PriceHound/internal/logging"
	"github.com/IshaanNene/PriceHound/internal/marker"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// IndexResult reports what IndexOnce did.
type IndexResult struct {
	Written int
	Skipped bool
}

// Indexer writes products into a backend, guarded by a completion marker.
type Indexer struct {
	backend Backend
	marker  marker.Marker
	logger  zerolog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(b Backend, m marker.Marker, logger zerolog.Logger) *Indexer {
	return &Indexer{
		backend: b,
		marker:  m,
		logger:  logging.Component(logger, "indexer"),
	}
}

// Backend returns the underlying index backend.
func (ix *Indexer) Backend() Backend { return ix.backend }

// EnsureSchema creates the index when missing.
func (ix *Indexer) EnsureSchema(ctx context.Context) error {
	return ix.backend.EnsureSchema(ctx)
}

// Done reports whether the marker is present.
func (ix *Indexer) Done(ctx context.Context) (bool, error) {
	return ix.marker.Exists(ctx)
}

// WriteBatch inserts every product. Repeated calls insert duplicates.
func (ix *Indexer) WriteBatch(ctx context.Context, products []*types.Product) (int, error) {
	docs := make([]types.Document, len(products))
	for i, p := range products {
		docs[i] = p.Document()
	}
	return ix.backend.WriteBatch(ctx, docs)
}

// IndexOnce writes products only when the marker is absent, then sets the
// marker. The marker is left unset when the write fails.
func (ix *Indexer) IndexOnce(ctx context.Context, products []*types.Product) (IndexResult, error) {
	done, err := ix.marker.Exists(ctx)
	if err != nil {
		return IndexResult{}, err
	}
	if done {
		ix.logger.Info().Str("marker", ix.marker.Location()).Msg("marker present, skipping index write")
		return IndexResult{Skipped: true}, nil
	}

	n, err := ix.WriteBatch(ctx, products)
	if err != nil {
		return IndexResult{Written: n}, err
	}
	if err := ix.marker.Set(ctx); err != nil {
		return IndexResult{Written: n}, err
	}

	ix.logger.Info().Int("written", n).Str("marker", ix.marker.Location()).Msg("products indexed")
	return IndexResult{Written: n}, nil
}

// MarkDone sets the marker without writing, for an index filled elsewhere.
func (ix *Indexer) MarkDone(ctx context.Context) error {
	return ix.marker.Set(ctx)
}

// Reset clears the marker so the next IndexOnce writes again.
func (ix *Indexer) Reset(ctx context.Context) error {
	return ix.marker.Clear(ctx)
}

// Close releases the backend and the marker.
func (ix *Indexer) Close() error {
	berr := ix.backend.Close()
	if err := ix.marker.Close(); err != nil {
		return err
	}
	return berr
}
