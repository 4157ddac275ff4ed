package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/shop-ai/internal/config"
)

func TestNewChatModel_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AIConfig
		wantErr string
	}{
		{"unsupported provider", config.AIConfig{Provider: "groq"}, "unsupported ai provider: groq"},
		{"openai without key", config.AIConfig{Provider: "openai"}, "api_key is required for provider: openai"},
		{"deepseek without key", config.AIConfig{Provider: "deepseek"}, "api_key is required for provider: deepseek"},
		{"qwen without key", config.AIConfig{Provider: "qwen"}, "api_key is required for provider: qwen"},
		{"gemini without key", config.AIConfig{Provider: "gemini"}, "api_key is required for provider: gemini"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewChatModel(context.Background(), &tt.cfg)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewChatModel_OpenAICompatible(t *testing.T) {
	m, err := NewChatModel(context.Background(), &config.AIConfig{
		Provider:  "deepseek",
		DeepSeek:  config.DeepSeekConfig{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "deepseek-chat"},
		MaxTokens: 256,
		Timeout:   5,
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestGeminiClientConfig_Timeout(t *testing.T) {
	cfg := &config.AIConfig{Provider: "gemini", Gemini: config.GeminiConfig{APIKey: "g-test"}}

	bounded := geminiClientConfig(cfg, 30*time.Second)
	assert.Equal(t, "g-test", bounded.APIKey)
	require.NotNil(t, bounded.HTTPOptions.Timeout)
	assert.Equal(t, 30*time.Second, *bounded.HTTPOptions.Timeout)

	unbounded := geminiClientConfig(cfg, 0)
	assert.Nil(t, unbounded.HTTPOptions.Timeout)
}
