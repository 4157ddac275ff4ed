package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/shop-ai/internal/config"
	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/service/agent"
	"github.com/ashwinyue/shop-ai/internal/service/auth"
	"github.com/ashwinyue/shop-ai/internal/service/callback"
	"github.com/ashwinyue/shop-ai/internal/service/conversation"
	embeddingsvc "github.com/ashwinyue/shop-ai/internal/service/embedding"
	"github.com/ashwinyue/shop-ai/internal/service/llm"
	"github.com/ashwinyue/shop-ai/internal/service/search"
	"github.com/ashwinyue/shop-ai/internal/service/tools"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// historyCacheTTL 最近历史缓存的过期时间
const historyCacheTTL = 2 * time.Hour

// Services 服务集合
type Services struct {
	Config *config.Config

	// 业务服务
	Agent         *agent.Orchestrator
	Search        *search.Service
	Tools         *tools.Registry
	Conversations *conversation.Store
	Auth          *auth.TokenService

	// Eino 组件（直接使用 eino 类型，无封装）
	ChatModel model.ToolCallingChatModel
	Embedder  embedding.Embedder

	VectorBackend string
	closers       []func() error
}

// Components 可替换的外部组件，为 nil 时按配置创建
type Components struct {
	ChatModel   model.ToolCallingChatModel
	Embedder    embedding.Embedder
	VectorStore search.VectorStore
}

// NewServices 创建所有服务
// redisClient 可为 nil，此时不启用向量缓存和历史缓存
func NewServices(ctx context.Context, repos *repository.Repositories, cfg *config.Config, redisClient redis.UniversalClient, comps Components) (*Services, error) {
	s := &Services{Config: cfg, VectorBackend: cfg.Vector.Backend}

	callback.SetupGlobalCallbacks(cfg.App.Debug)

	// ChatModel
	chatModel := comps.ChatModel
	if chatModel == nil {
		var err error
		chatModel, err = llm.NewChatModel(ctx, &cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
	}
	s.ChatModel = chatModel

	// Embedding 器
	embedder := comps.Embedder
	if embedder == nil {
		var err error
		embedder, err = embeddingsvc.New(ctx, &cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}
	if redisClient != nil && cfg.Embedding.CacheTTL > 0 {
		namespace := cfg.Embedding.Provider + ":" + cfg.Embedding.Model
		embedder = embeddingsvc.NewCachedEmbedder(embedder, redisClient, namespace, time.Duration(cfg.Embedding.CacheTTL)*time.Second)
	}
	s.Embedder = embedder

	// 向量索引
	store := comps.VectorStore
	if store == nil {
		var err error
		store, err = s.newVectorStore(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		s.VectorBackend = "custom"
	}

	s.Search = search.NewService(embedder, store, repos.Catalog, search.ConfigFrom(&cfg.Search))
	s.Tools = tools.NewRegistry(s.Search, repos.Catalog, repos.Order, cfg.Search.MaxToolLimit)

	var historyCache *conversation.HistoryCache
	if redisClient != nil {
		historyCache = conversation.NewHistoryCache(redisClient, historyCacheTTL, cfg.Agent.HistoryLimit)
	}
	s.Conversations = conversation.NewStore(repos.Conversation, historyCache)

	gateway := llm.NewGateway(chatModel, llm.OptionsFrom(&cfg.AI, &cfg.Agent))
	s.Agent = agent.NewOrchestrator(gateway, s.Tools, s.Conversations, repos.Catalog, agent.ConfigFrom(&cfg.Agent))

	tokens, err := auth.NewTokenService(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	s.Auth = tokens

	logx.Info().
		Str("ai_provider", cfg.AI.Provider).
		Str("embedding_provider", cfg.Embedding.Provider).
		Str("vector_backend", s.VectorBackend).
		Bool("redis", redisClient != nil).
		Strs("tools", s.Tools.Names()).
		Msg("services initialized")
	return s, nil
}

// newVectorStore 按配置创建向量索引
func (s *Services) newVectorStore(cfg *config.Config) (search.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "elasticsearch":
		client, err := search.NewESClient(&cfg.Elastic)
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		return search.NewESStore(client, cfg.Elastic.ProductIndex(), cfg.Vector.Dimensions, time.Duration(cfg.Elastic.Timeout)*time.Second), nil
	case "duckdb":
		store, err := search.NewDuckDBStore(cfg.DuckDB.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open duckdb: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	case "memory":
		return search.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Vector.Backend)
	}
}

// Close 释放服务持有的资源
func (s *Services) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
