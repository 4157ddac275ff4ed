package search

import (
	"context"
	"math"
)

// ProductMetadata 随向量写入索引的商品元数据，用于过滤
type ProductMetadata struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
	IsActive      bool    `json:"is_active"`
}

// VectorRecord 待写入索引的向量
type VectorRecord struct {
	ProductID uint
	Vector    []float64
	Metadata  ProductMetadata
}

// Filter 元数据过滤：类目等值，价格闭区间，各项独立可选
type Filter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
}

// Match 索引返回的原始匹配，Score 为余弦相似度
type Match struct {
	ProductID uint
	Score     float64
}

// VectorStore 向量索引的写入/查询契约
// Query 返回按 Score 降序的最多 topK 个匹配
type VectorStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []VectorRecord) error
	Delete(ctx context.Context, productID uint) error
	Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error)
}

// matches 判断元数据是否满足过滤条件
func (f Filter) matches(m ProductMetadata) bool {
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && m.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && m.Price > *f.MaxPrice {
		return false
	}
	return true
}

// cosine 余弦相似度，零向量返回 0
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
