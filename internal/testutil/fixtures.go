// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/ashwinyue/shop-ai/internal/database"
	"github.com/ashwinyue/shop-ai/internal/model"
)

// NewTestDB 创建独立的内存 SQLite 数据库
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLiteMemory(name)
	if err != nil {
		t.Fatalf("NewSQLiteMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// DemoProducts 测试用商品目录
func DemoProducts() []*model.Product {
	return []*model.Product{
		{ID: 1, Name: "Wireless Noise Cancelling Headphones", Description: "Over-ear bluetooth headphones with active noise cancelling", Price: 89.99, Category: "electronics", Brand: "Sonic", StockQuantity: 12, IsActive: true},
		{ID: 2, Name: "Studio Monitor Headphones", Description: "Wired closed-back headphones for studio mixing", Price: 149.00, Category: "electronics", Brand: "Sonic", StockQuantity: 4, IsActive: true},
		{ID: 3, Name: "Sport Earbuds", Description: "Wireless in-ear earbuds, sweat resistant", Price: 49.50, Category: "electronics", Brand: "Fit", StockQuantity: 30, IsActive: true},
		{ID: 4, Name: "Trail Running Shoes", Description: "Lightweight running shoes with grippy sole", Price: 119.00, Category: "shoes", Brand: "Stride", StockQuantity: 8, IsActive: true},
		{ID: 5, Name: "Discontinued Headphones", Description: "Old wireless headphones no longer sold", Price: 39.00, Category: "electronics", Brand: "Sonic", StockQuantity: 0, IsActive: false},
		{ID: 6, Name: "Cotton Hoodie", Description: "Warm cotton hoodie for everyday wear", Price: 45.00, Category: "clothing", Brand: "Basic", StockQuantity: 20, IsActive: true},
	}
}

// SeedProducts 写入商品
func SeedProducts(t *testing.T, db *database.DB, products ...*model.Product) {
	t.Helper()
	for _, p := range products {
		if err := db.Create(p).Error; err != nil {
			t.Fatalf("seed product %d: %v", p.ID, err)
		}
	}
}

// SeedOrders 写入订单
func SeedOrders(t *testing.T, db *database.DB, orders ...*model.Order) {
	t.Helper()
	for _, o := range orders {
		if err := db.Create(o).Error; err != nil {
			t.Fatalf("seed order %d: %v", o.ID, err)
		}
	}
}

// ========== HashEmbedder ==========

// HashEmbedder 确定性的词袋哈希向量，用于不依赖模型服务的测试
type HashEmbedder struct {
	Dims  int
	Calls int
}

var _ embedding.Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder 创建哈希向量器
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{Dims: dims}
}

// EmbedStrings 实现 embedding.Embedder
func (e *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	e.Calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.Dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.Dims)] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
