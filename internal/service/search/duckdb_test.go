package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/testutil"
)

func newTestDuckDB(t *testing.T) *DuckDBStore {
	t.Helper()
	store, err := NewDuckDBStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureIndex(context.Background()))
	return store
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[1,0.5,-2]", vectorLiteral([]float64{1, 0.5, -2}))
}

func TestDuckDBStore_UpsertQueryDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestDuckDB(t)

	require.NoError(t, store.Upsert(ctx, []VectorRecord{
		{ProductID: 1, Vector: []float64{1, 0}, Metadata: ProductMetadata{Category: "a", Price: 10, IsActive: true}},
		{ProductID: 2, Vector: []float64{0, 1}, Metadata: ProductMetadata{Category: "b", Price: 20, IsActive: true}},
		{ProductID: 3, Vector: []float64{0.6, 0.8}, Metadata: ProductMetadata{Category: "a", Price: 30, IsActive: true}},
	}))
	// 覆盖写入
	require.NoError(t, store.Upsert(ctx, []VectorRecord{
		{ProductID: 2, Vector: []float64{0.8, 0.6}, Metadata: ProductMetadata{Category: "b", Price: 20, IsActive: true}},
	}))

	matches, err := store.Query(ctx, []float64{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []uint{1, 2, 3}, []uint{matches[0].ProductID, matches[1].ProductID, matches[2].ProductID})
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.InDelta(t, 0.8, matches[1].Score, 1e-9)

	matches, err = store.Query(ctx, []float64{1, 0}, 10, Filter{Category: "a", MinPrice: ptr(15)})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint(3), matches[0].ProductID)

	matches, err = store.Query(ctx, []float64{1, 0}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	require.NoError(t, store.Delete(ctx, 1))
	require.NoError(t, store.Delete(ctx, 1))
	matches, err = store.Query(ctx, []float64{1, 0}, 10, Filter{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestDuckDBStore_ServiceOnFreshStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewDuckDBStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db := testutil.NewTestDB(t)
	products := testutil.DemoProducts()
	testutil.SeedProducts(t, db, products...)
	svc := NewService(testutil.NewHashEmbedder(64), store, repository.NewCatalogRepository(db.DB), Config{MinScore: 0.3})

	require.NoError(t, svc.Index(ctx, products[0]))
	results, err := svc.Search(ctx, Query{Text: ProductText(products[0])})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, products[0].ID, results[0].Product.ID)
}
