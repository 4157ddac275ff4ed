// Package search 语义检索服务：商品向量索引的写入、相似度检索与相似商品推荐
package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/ashwinyue/shop-ai/internal/config"
	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/repository"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// Config 检索参数
type Config struct {
	DefaultTopK     int
	MinScore        float64
	SimilarMinScore float64
	Precision       int
	BatchSize       int
}

// ConfigFrom 从应用配置构造检索参数
func ConfigFrom(cfg *config.SearchConfig) Config {
	return Config{
		DefaultTopK:     cfg.DefaultTopK,
		MinScore:        cfg.MinScore,
		SimilarMinScore: cfg.SimilarMinScore,
		Precision:       cfg.ScorePrecision,
		BatchSize:       cfg.IndexBatchSize,
	}
}

// Query 检索请求，可选字段为 nil 表示不过滤
type Query struct {
	Text     string
	TopK     int
	Category string
	MinPrice *float64
	MaxPrice *float64
	MinScore *float64
}

// Result 检索结果
type Result struct {
	Product    *model.Product `json:"product"`
	Similarity float64        `json:"similarity"`
}

// Service 语义检索服务
type Service struct {
	embedder embedding.Embedder
	store    VectorStore
	catalog  repository.CatalogRepository
	cfg      Config

	// 索引在首次写入或查询前创建，失败后下次调用重试
	mu    sync.Mutex
	ready bool
}

// NewService 创建检索服务
func NewService(embedder embedding.Embedder, store VectorStore, catalog repository.CatalogRepository, cfg Config) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.Precision <= 0 {
		cfg.Precision = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Service{embedder: embedder, store: store, catalog: catalog, cfg: cfg}
}

// ProductText 商品的向量化文本，字段顺序固定
func ProductText(p *model.Product) string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Name, p.Description, p.Category, p.Brand} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, fmt.Sprintf("price $%.2f", p.Price))
	return strings.Join(parts, " ")
}

func metadataOf(p *model.Product) ProductMetadata {
	return ProductMetadata{
		Name:          p.Name,
		Category:      p.Category,
		Brand:         p.Brand,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
}

// EnsureIndex 确保向量索引已创建，成功后不再重复调用底层存储
func (s *Service) EnsureIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.store.EnsureIndex(ctx); err != nil {
		return errx.WrapIndex(err)
	}
	s.ready = true
	return nil
}

// ========== 写入 ==========

// Index 写入单个商品，重复写入覆盖旧向量
func (s *Service) Index(ctx context.Context, p *model.Product) error {
	_, err := s.indexBatch(ctx, []*model.Product{p})
	return err
}

func (s *Service) indexBatch(ctx context.Context, products []*model.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = ProductText(p)
	}

	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed products: %w", err)
	}
	if len(vectors) != len(products) {
		return 0, fmt.Errorf("embed products: got %d vectors for %d texts", len(vectors), len(products))
	}

	records := make([]VectorRecord, len(products))
	for i, p := range products {
		records[i] = VectorRecord{ProductID: p.ID, Vector: vectors[i], Metadata: metadataOf(p)}
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return 0, errx.WrapIndex(err)
	}
	return len(records), nil
}

// IndexAll 分批写入全部上架商品，返回写入数量
func (s *Service) IndexAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	if err := s.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	total := 0
	for offset := 0; ; offset += batchSize {
		products, err := s.catalog.ListActive(ctx, offset, batchSize, "")
		if err != nil {
			return total, errx.WrapDB(err)
		}
		n, err := s.indexBatch(ctx, products)
		if err != nil {
			return total, err
		}
		total += n
		logx.Debug().Int("offset", offset).Int("count", n).Msg("indexed product batch")
		if len(products) < batchSize {
			break
		}
	}

	logx.Info().Int("total", total).Msg("product index rebuilt")
	return total, nil
}

// Remove 删除商品向量，不存在时忽略
func (s *Service) Remove(ctx context.Context, productID uint) error {
	if err := s.EnsureIndex(ctx); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, productID); err != nil {
		return errx.WrapIndex(err)
	}
	return nil
}

// ========== 检索 ==========

// Search 语义检索
// 低于阈值的匹配被丢弃，剩余匹配以商品库为准回填，缺失或已下架的商品不会返回
func (s *Service) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, errx.BadRequest("query must not be empty")
	}
	topK := q.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	minScore := s.cfg.MinScore
	if q.MinScore != nil {
		minScore = *q.MinScore
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	if err := s.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	filter := Filter{Category: q.Category, MinPrice: q.MinPrice, MaxPrice: q.MaxPrice}
	matches, err := s.store.Query(ctx, vectors[0], topK, filter)
	if err != nil {
		return nil, errx.WrapIndex(err)
	}

	// 先按原始分数过滤再取整，避免边界值因取整越过阈值
	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		score := clamp01(m.Score)
		if score < minScore {
			continue
		}
		kept = append(kept, Match{ProductID: m.ProductID, Score: score})
	}
	return s.hydrate(ctx, kept, filter)
}

// FindSimilar 与指定商品相似的商品，不包含商品本身
// 商品不存在时返回空列表
func (s *Service) FindSimilar(ctx context.Context, productID uint, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, errx.WrapDB(err)
	}
	if p == nil {
		return []Result{}, nil
	}

	minScore := s.cfg.SimilarMinScore
	results, err := s.Search(ctx, Query{Text: ProductText(p), TopK: topK + 1, MinScore: &minScore})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, topK)
	for _, r := range results {
		if r.Product.ID == productID {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// hydrate 以商品库为准回填匹配结果
// 索引元数据可能过期，过滤条件按商品库当前值再校验一次
func (s *Service) hydrate(ctx context.Context, matches []Match, filter Filter) ([]Result, error) {
	if len(matches) == 0 {
		return []Result{}, nil
	}
	ids := make([]uint, len(matches))
	for i, m := range matches {
		ids[i] = m.ProductID
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errx.WrapDB(err)
	}
	byID := make(map[uint]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		p, ok := byID[m.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		if !filter.matches(metadataOf(p)) {
			continue
		}
		results = append(results, Result{Product: p, Similarity: roundTo(m.Score, s.cfg.Precision)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
