package search

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore 进程内向量索引，暴力计算余弦相似度
// 用于本地开发和测试，数据不持久化
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uint]VectorRecord
}

// NewMemoryStore 创建内存索引
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint]VectorRecord)}
}

// EnsureIndex 内存索引无需建表
func (s *MemoryStore) EnsureIndex(ctx context.Context) error {
	return nil
}

// Upsert 按商品 ID 覆盖写入
func (s *MemoryStore) Upsert(ctx context.Context, records []VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		vec := make([]float64, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		s.records[r.ProductID] = r
	}
	return nil
}

// Delete 删除向量，不存在时忽略
func (s *MemoryStore) Delete(ctx context.Context, productID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, productID)
	return nil
}

// Len 已索引数量
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Query 查询最相似的 topK 个商品，同分按商品 ID 升序
func (s *MemoryStore) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.records))
	for id, r := range s.records {
		if !filter.matches(r.Metadata) {
			continue
		}
		matches = append(matches, Match{ProductID: id, Score: cosine(vector, r.Vector)})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ProductID < matches[j].ProductID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
