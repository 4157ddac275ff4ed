package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ReplyFunc 根据输入消息和已绑定工具生成模型输出
type ReplyFunc func(messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

// ChatModel 脚本化的 ToolCallingChatModel
type ChatModel struct {
	mu    *sync.Mutex
	reply ReplyFunc
	tools []*schema.ToolInfo
	calls *int
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)

// NewChatModel 创建脚本化模型
func NewChatModel(reply ReplyFunc) *ChatModel {
	return &ChatModel{reply: reply, mu: &sync.Mutex{}, calls: new(int)}
}

// Generate 实现 model.BaseChatModel
func (m *ChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	*m.calls++
	m.mu.Unlock()
	return m.reply(messages, m.tools)
}

// Stream 不支持流式输出
func (m *ChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

// WithTools 返回绑定了工具的副本
func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &ChatModel{reply: m.reply, tools: tools, mu: m.mu, calls: m.calls}, nil
}

// Calls 累计调用次数，包含工具绑定后的副本
func (m *ChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.calls
}
