package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/ashwinyue/shop-ai/internal/config"
)

const alibabaCompatibleURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// NewChatModel 按 ai.provider 创建支持工具调用的 ChatModel
// openai / alibaba / deepseek 走 OpenAI 兼容协议，gemini 走 genai SDK
func NewChatModel(ctx context.Context, cfg *config.AIConfig) (model.ToolCallingChatModel, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second

	if cfg.Provider == "gemini" {
		return newGeminiChatModel(ctx, cfg, timeout)
	}

	var apiKey, baseURL, modelName string
	switch cfg.Provider {
	case "openai":
		apiKey = cfg.OpenAI.APIKey
		baseURL = cfg.OpenAI.BaseURL
		modelName = cfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = cfg.Alibaba.AccessKeySecret
		baseURL = cfg.Alibaba.BaseURL
		if baseURL == "" {
			baseURL = alibabaCompatibleURL
		}
		modelName = cfg.Alibaba.Model
	case "deepseek":
		apiKey = cfg.DeepSeek.APIKey
		baseURL = cfg.DeepSeek.BaseURL
		modelName = cfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", cfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
		Timeout: timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		chatCfg.MaxTokens = &maxTokens
	}
	return openai.NewChatModel(ctx, chatCfg)
}

// geminiClientConfig genai 客户端配置，timeout > 0 时限制单次请求耗时
func geminiClientConfig(cfg *config.AIConfig, timeout time.Duration) *genai.ClientConfig {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		clientCfg.HTTPOptions = genai.HTTPOptions{Timeout: &timeout}
	}
	return clientCfg
}

func newGeminiChatModel(ctx context.Context, cfg *config.AIConfig, timeout time.Duration) (model.ToolCallingChatModel, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", cfg.Provider)
	}

	client, err := genai.NewClient(ctx, geminiClientConfig(cfg, timeout))
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	modelName := cfg.Gemini.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	geminiCfg := &gemini.Config{
		Client: client,
		Model:  modelName,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		geminiCfg.MaxTokens = &maxTokens
	}
	return gemini.NewChatModel(ctx, geminiCfg)
}
