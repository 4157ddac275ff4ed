package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ashwinyue/shop-ai/internal/config"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

const esVectorField = "embedding"

// ESStore 基于 Elasticsearch dense_vector 的向量索引
// 查询使用 script_score 精确计算余弦相似度
type ESStore struct {
	client     *elasticsearch.Client
	index      string
	dimensions int
	timeout    time.Duration
}

// NewESClient 创建 ES8 客户端，elastic.timeout 同时限制等待响应头的时间
func NewESClient(cfg *config.ElasticConfig) (*elasticsearch.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Timeout > 0 {
		transport.ResponseHeaderTimeout = time.Duration(cfg.Timeout) * time.Second
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Host},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
}

// NewESStore 创建 ES 向量索引
// timeout > 0 时每次请求（含重试）的总耗时不超过 timeout
func NewESStore(client *elasticsearch.Client, index string, dimensions int, timeout time.Duration) *ESStore {
	return &ESStore{client: client, index: index, dimensions: dimensions, timeout: timeout}
}

func (s *ESStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureIndex 确保 ES 索引存在（如不存在则创建）
func (s *ESStore) EnsureIndex(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	dimensions := s.dimensions
	if dimensions == 0 {
		dimensions = 1024
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"product_id":     map[string]interface{}{"type": "long"},
				"name":           map[string]interface{}{"type": "text"},
				"category":       map[string]interface{}{"type": "keyword"},
				"brand":          map[string]interface{}{"type": "keyword"},
				"price":          map[string]interface{}{"type": "double"},
				"stock_quantity": map[string]interface{}{"type": "integer"},
				"is_active":      map[string]interface{}{"type": "boolean"},
				esVectorField: map[string]interface{}{
					"type":       "dense_vector",
					"dims":       dimensions,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}

	mappingData, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: s.index,
		Body:  bytes.NewReader(mappingData),
	}
	res, err = req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	logx.Info().Str("index", s.index).Int("dims", dimensions).Msg("vector index created")
	return nil
}

// esDocument 索引中的文档
type esDocument struct {
	ProductID uint      `json:"product_id"`
	Vector    []float64 `json:"embedding"`
	ProductMetadata
}

// Upsert 通过 bulk API 按商品 ID 覆盖写入
func (s *ESStore) Upsert(ctx context.Context, records []VectorRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": s.index, "_id": strconv.FormatUint(uint64(r.ProductID), 10)},
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(esDocument{ProductID: r.ProductID, Vector: r.Vector, ProductMetadata: r.Metadata}); err != nil {
			return err
		}
	}

	res, err := s.client.Bulk(bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("bulk upsert: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk upsert: %s", res.String())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string          `json:"_id"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if len(op.Error) > 0 {
					return fmt.Errorf("bulk upsert %s: %s", op.ID, op.Error)
				}
			}
		}
		return fmt.Errorf("bulk upsert reported errors")
	}
	return nil
}

// Delete 删除向量，文档不存在时忽略
func (s *ESStore) Delete(ctx context.Context, productID uint) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Delete(s.index, strconv.FormatUint(uint64(productID), 10),
		s.client.Delete.WithContext(ctx),
		s.client.Delete.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("delete vector: %s", res.String())
	}
	return nil
}

// buildQuery 构造 script_score 查询
// 余弦相似度 +1 保证分数非负，解析时再减回
func buildQuery(vector []float64, topK int, filter Filter) map[string]interface{} {
	var filters []interface{}
	if filter.Category != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category": filter.Category},
		})
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		rng := map[string]interface{}{}
		if filter.MinPrice != nil {
			rng["gte"] = *filter.MinPrice
		}
		if filter.MaxPrice != nil {
			rng["lte"] = *filter.MaxPrice
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"price": rng},
		})
	}

	var inner map[string]interface{}
	if len(filters) == 0 {
		inner = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		inner = map[string]interface{}{"bool": map[string]interface{}{"filter": filters}}
	}

	return map[string]interface{}{
		"size":    topK,
		"_source": []string{"product_id"},
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": inner,
				"script": map[string]interface{}{
					"source": fmt.Sprintf("cosineSimilarity(params.query_vector, '%s') + 1.0", esVectorField),
					"params": map[string]interface{}{"query_vector": vector},
				},
			},
		},
	}
}

// Query 向量检索
func (s *ESStore) Query(ctx context.Context, vector []float64, topK int, filter Filter) ([]Match, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if topK <= 0 {
		return nil, nil
	}

	body, err := json.Marshal(buildQuery(vector, topK, filter))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	matches := make([]Match, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			logx.Warn().Str("id", hit.ID).Msg("skip vector with non-numeric id")
			continue
		}
		matches = append(matches, Match{ProductID: uint(id), Score: hit.Score - 1.0})
	}
	return matches, nil
}
