package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	einoemb "github.com/cloudwego/eino/components/embedding"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/shop-ai/internal/config"
	"github.com/ashwinyue/shop-ai/internal/testutil"
)

type failingEmbedder struct{}

func (failingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...einoemb.Option) ([][]float64, error) {
	return nil, errors.New("provider down")
}

func newCache(t *testing.T, next einoemb.Embedder) (*CachedEmbedder, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedEmbedder(next, rdb, "test-model", time.Hour), mr
}

func TestCachedEmbedder_HitsSkipProvider(t *testing.T) {
	inner := testutil.NewHashEmbedder(16)
	cache, _ := newCache(t, inner)
	ctx := context.Background()

	first, err := cache.EmbedStrings(ctx, []string{"red shoes", "blue hat"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.Calls)

	second, err := cache.EmbedStrings(ctx, []string{"blue hat", "red shoes"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.Calls)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[1])

	// 部分命中只对未命中的文本调用下游
	mixed, err := cache.EmbedStrings(ctx, []string{"red shoes", "green scarf"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Calls)
	assert.Equal(t, first[0], mixed[0])
	assert.Len(t, mixed[1], 16)
}

func TestCachedEmbedder_RedisDownStillEmbeds(t *testing.T) {
	inner := testutil.NewHashEmbedder(8)
	cache, mr := newCache(t, inner)
	mr.Close()

	vecs, err := cache.EmbedStrings(context.Background(), []string{"anything"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Equal(t, 1, inner.Calls)
}

func TestCachedEmbedder_ProviderError(t *testing.T) {
	cache, _ := newCache(t, failingEmbedder{})
	_, err := cache.EmbedStrings(context.Background(), []string{"x"})
	require.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), &config.EmbeddingConfig{Provider: "dashscope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")

	_, err = New(context.Background(), &config.EmbeddingConfig{Provider: "word2vec", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word2vec")
}
