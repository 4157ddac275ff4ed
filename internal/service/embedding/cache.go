package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/shop-ai/internal/errx"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

const cacheKeyPrefix = "shop-ai:emb:"

// CachedEmbedder 带 Redis 缓存的 Embedding 器
// 相同模型下相同文本的向量是确定的，缓存读写失败只记录日志
type CachedEmbedder struct {
	next      embedding.Embedder
	rdb       redis.UniversalClient
	namespace string
	ttl       time.Duration
}

var _ embedding.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder 创建缓存 Embedding 器，namespace 一般为模型名
func NewCachedEmbedder(next embedding.Embedder, rdb redis.UniversalClient, namespace string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, rdb: rdb, namespace: namespace, ttl: ttl}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.namespace + ":" + hex.EncodeToString(sum[:])
}

// EmbedStrings 实现 embedding.Embedder
func (c *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float64, len(texts))
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Warn().Err(errx.WrapRedis(err)).Msg("embedding cache read failed")
		cached = nil
	}

	var missIdx []int
	var missTexts []string
	for i := range texts {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				var vec []float64
				if json.Unmarshal([]byte(s), &vec) == nil {
					out[i] = vec
					continue
				}
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.next.EmbedStrings(ctx, missTexts, opts...)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, errors.New("embedding: vector count mismatch")
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = vectors[j]
		b, err := json.Marshal(vectors[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[i], b, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Warn().Err(errx.WrapRedis(err)).Msg("embedding cache write failed")
	}

	return out, nil
}
