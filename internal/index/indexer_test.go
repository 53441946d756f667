package index

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/PriceHound/internal/marker"
	"github.com/IshaanNene/PriceHound/internal/types"
)

func sampleProducts() []*types.Product {
	a := types.NewProduct(0)
	a.Title = types.StringPtr("SteelSeries Rival 3")
	a.Price = types.FloatPtr(1299)
	b := types.NewProduct(1)
	b.Title = types.StringPtr("Steelseries Aerox 5")
	b.Price = types.FloatPtr(45)
	return []*types.Product{a, b}
}

func TestIndexOnceWritesThenSkips(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("products")
	m := marker.NewFileMarker(t.TempDir(), "indexing_done_81")
	ix := NewIndexer(backend, m, zerolog.Nop())
	require.NoError(t, ix.EnsureSchema(ctx))

	res, err := ix.IndexOnce(ctx, sampleProducts())
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Written: 2}, res)

	done, err := ix.Done(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	res, err = ix.IndexOnce(ctx, sampleProducts())
	require.NoError(t, err)
	assert.Equal(t, IndexResult{Skipped: true}, res)

	n, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "second run writes nothing")
}

func TestIndexOnceDuplicatesAfterMarkerRemoved(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("products")
	m := marker.NewFileMarker(t.TempDir(), "indexing_done_81")
	ix := NewIndexer(backend, m, zerolog.Nop())
	defer ix.Close()

	_, err := ix.IndexOnce(ctx, sampleProducts())
	require.NoError(t, err)
	require.NoError(t, ix.Reset(ctx))
	_, err = ix.IndexOnce(ctx, sampleProducts())
	require.NoError(t, err)

	n, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

type failingBackend struct{ *MemoryBackend }

func (failingBackend) WriteBatch(context.Context, []types.Document) (int, error) {
	return 0, &types.StorageError{Backend: "failing", Err: errors.New("disk full")}
}

func TestIndexOnceFailedWriteLeavesMarkerUnset(t *testing.T) {
	ctx := context.Background()
	m := marker.NewFileMarker(t.TempDir(), "indexing_done_81")
	ix := NewIndexer(failingBackend{NewMemoryBackend("products")}, m, zerolog.Nop())

	_, err := ix.IndexOnce(ctx, sampleProducts())
	var se *types.StorageError
	require.ErrorAs(t, err, &se)

	done, err := m.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestIndexedProductsAreSearchable(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("products")
	ix := NewIndexer(backend, marker.NewFileMarker(t.TempDir(), "x"), zerolog.Nop())
	require.NoError(t, ix.EnsureSchema(ctx))

	_, err := ix.WriteBatch(ctx, sampleProducts())
	require.NoError(t, err)

	res, err := ix.Backend().Search(ctx, defaultQuery("steelseries"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, map[string]int64{"low": 1, "mid": 0, "high": 1}, bucketCounts(res))
}
