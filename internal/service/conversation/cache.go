package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/shop-ai/internal/errx"
)

// Redis key 前缀
const historyKeyPrefix = "shop-ai:history:"

// historyEntry 缓存中的单条历史
type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryCache 最近历史的 Redis 列表缓存
// 列表只在完整回填后存在，追加使用 RPUSHX，缺失时回源数据库
type HistoryCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	maxLen int
}

// NewHistoryCache 创建历史缓存
func NewHistoryCache(rdb redis.UniversalClient, ttl time.Duration, maxLen int) *HistoryCache {
	return &HistoryCache{rdb: rdb, ttl: ttl, maxLen: maxLen}
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

// Recent 读取最近 limit 条历史（按时间正序）
// 第二个返回值表示是否命中
func (c *HistoryCache) Recent(ctx context.Context, sessionID string, limit int) ([]historyEntry, bool, error) {
	if limit > c.maxLen {
		return nil, false, nil
	}
	key := historyKey(sessionID)

	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, errx.WrapRedis(err)
	}
	if n == 0 {
		return nil, false, nil
	}

	raw, err := c.rdb.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errx.WrapRedis(err)
	}

	entries := make([]historyEntry, 0, len(raw))
	for _, item := range raw {
		var e historyEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, false, err
		}
		entries = append(entries, e)
	}
	return entries, true, nil
}

// Fill 用数据库中的历史整体回填
func (c *HistoryCache) Fill(ctx context.Context, sessionID string, entries []historyEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > c.maxLen {
		entries = entries[len(entries)-c.maxLen:]
	}

	values := make([]any, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, b)
	}

	key := historyKey(sessionID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return errx.WrapRedis(err)
}

// Append 追加一条历史，列表不存在时不创建
func (c *HistoryCache) Append(ctx context.Context, sessionID string, e historyEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	key := historyKey(sessionID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPushX(ctx, key, b)
		pipe.LTrim(ctx, key, int64(-c.maxLen), -1)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	return errx.WrapRedis(err)
}
