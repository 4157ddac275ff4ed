// Package embedding 创建文本向量器，并提供基于 Redis 的向量缓存
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiemb "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/ashwinyue/shop-ai/internal/config"
)

// New 按配置创建 Embedding 器
func New(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api_key is required for provider: %s", cfg.Provider)
	}

	var timeout time.Duration
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	var dims *int
	if cfg.Dimensions > 0 {
		d := cfg.Dimensions
		dims = &d
	}

	switch cfg.Provider {
	case "alibaba", "qwen", "dashscope", "":
		modelName := cfg.Model
		if modelName == "" {
			modelName = "text-embedding-v3"
		}
		return dashscope.NewEmbedder(ctx, &dashscope.EmbeddingConfig{
			APIKey:     cfg.APIKey,
			Model:      modelName,
			Timeout:    timeout,
			Dimensions: dims,
		})
	case "openai":
		modelName := cfg.Model
		if modelName == "" {
			modelName = "text-embedding-3-small"
		}
		return openaiemb.NewEmbedder(ctx, &openaiemb.EmbeddingConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      modelName,
			Timeout:    timeout,
			Dimensions: dims,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
