// Package llm 语言模型网关：意图分类、回复生成和工具调用决策
// 三种调用都不会向调用方返回错误，失败时返回降级结果并在 Failure 中记录原因
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/shop-ai/internal/config"
	imodel "github.com/ashwinyue/shop-ai/internal/model"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

const (
	// ClarificationFallback 分类失败时的澄清提示
	ClarificationFallback = "I'm not sure I understood that. Could you please rephrase?"
	// ReplyFallback 回复生成失败时的固定文案
	ReplyFallback = "I apologize, but I encountered an error processing your request. Please try again."
)

// ========== 失败类型 ==========

// FailureKind 失败类别
type FailureKind string

const (
	FailureTransport FailureKind = "transport"      // 模型服务调用失败
	FailureParse     FailureKind = "parse"          // 模型输出无法解析
	FailureEmpty     FailureKind = "empty_response" // 模型返回空内容
	FailureTools     FailureKind = "tool_binding"   // 工具绑定失败
)

// Failure 降级原因
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// describe 面向用户的失败描述，不包含底层错误细节
func (f *Failure) describe() string {
	switch f.Kind {
	case FailureParse:
		return "the assistant returned a response I could not read"
	case FailureTools:
		return "the assistant tools are unavailable"
	case FailureEmpty:
		return "the assistant returned an empty response"
	default:
		return "the assistant service is unavailable"
	}
}

// ========== 结果类型 ==========

// Classification 意图分类结果
type Classification struct {
	Intent                imodel.Intent
	Confidence            float64
	Entities              imodel.ExtractedEntities
	RequiresClarification bool
	ClarificationQuestion string
	Failure               *Failure
}

// ToolCall 模型请求的一次工具调用
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	// ArgumentsErr 参数无法解析为 JSON 对象
	ArgumentsErr error
}

// ToolDecision 工具调用决策：ToolCalls 与 Text 只有一个有值
type ToolDecision struct {
	ToolCalls []ToolCall
	Text      string
	Failure   *Failure
}

// Reply 回复生成结果
type Reply struct {
	Text    string
	Failure *Failure
}

// ToolOutput 作为回复依据的工具结果
type ToolOutput struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

// ========== Gateway ==========

// Options 调用参数
type Options struct {
	ClassifyTemperature float32
	RespondTemperature  float32
	ToolCallTemperature float32
	MaxTokens           int
	ClassifyWindow      int
	RespondWindow       int
}

// OptionsFrom 从应用配置构造调用参数
func OptionsFrom(ai *config.AIConfig, agent *config.AgentConfig) Options {
	return Options{
		ClassifyTemperature: ai.ClassifyTemperature,
		RespondTemperature:  ai.RespondTemperature,
		ToolCallTemperature: ai.ToolCallTemperature,
		MaxTokens:           ai.MaxTokens,
		ClassifyWindow:      agent.ClassifyWindow,
		RespondWindow:       agent.RespondWindow,
	}
}

// Gateway 语言模型网关
type Gateway struct {
	chatModel model.ToolCallingChatModel
	opts      Options
}

// NewGateway 创建网关
func NewGateway(chatModel model.ToolCallingChatModel, opts Options) *Gateway {
	if opts.ClassifyWindow <= 0 {
		opts.ClassifyWindow = 5
	}
	if opts.RespondWindow <= 0 {
		opts.RespondWindow = 10
	}
	return &Gateway{chatModel: chatModel, opts: opts}
}

func (g *Gateway) callOptions(temperature float32) []model.Option {
	opts := []model.Option{model.WithTemperature(temperature)}
	if g.opts.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(g.opts.MaxTokens))
	}
	return opts
}

// tail 取最近 n 条历史
func tail(history []*schema.Message, n int) []*schema.Message {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

// Classify 识别意图并抽取实体，最多参考最近 ClassifyWindow 条历史
func (g *Gateway) Classify(ctx context.Context, message string, history []*schema.Message) Classification {
	recent := tail(history, g.opts.ClassifyWindow)
	messages := make([]*schema.Message, 0, len(recent)+2)
	messages = append(messages, schema.SystemMessage(classifyPrompt))
	messages = append(messages, recent...)
	messages = append(messages, schema.UserMessage("Classify this message: "+message))

	resp, err := g.chatModel.Generate(ctx, messages, g.callOptions(g.opts.ClassifyTemperature)...)
	if err != nil {
		return classificationFallback(&Failure{Kind: FailureTransport, Err: err})
	}
	if resp == nil || resp.Content == "" {
		return classificationFallback(&Failure{Kind: FailureEmpty})
	}

	c, err := parseClassification(resp.Content)
	if err != nil {
		return classificationFallback(&Failure{Kind: FailureParse, Err: err})
	}
	return c
}

func classificationFallback(f *Failure) Classification {
	logx.Warn().Err(f).Msg("intent classification degraded")
	return Classification{
		Intent:                imodel.IntentUnknown,
		Confidence:            0,
		RequiresClarification: true,
		ClarificationQuestion: ClarificationFallback,
		Failure:               f,
	}
}

// buildMessages 系统提示 -> 最近历史 -> 工具结果 -> 用户消息
func (g *Gateway) buildMessages(systemPrompt, message string, history []*schema.Message, toolContext string) []*schema.Message {
	recent := tail(history, g.opts.RespondWindow)
	messages := make([]*schema.Message, 0, len(recent)+3)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, recent...)
	if toolContext != "" {
		messages = append(messages, schema.SystemMessage(toolContext))
	}
	messages = append(messages, schema.UserMessage(message))
	return messages
}

// Respond 生成回复，toolOutputs 非空时作为回复依据放在用户消息之前
func (g *Gateway) Respond(ctx context.Context, message, systemPrompt string, history []*schema.Message, toolOutputs []ToolOutput) Reply {
	messages := g.buildMessages(systemPrompt, message, history, RenderToolContext(toolOutputs))

	resp, err := g.chatModel.Generate(ctx, messages, g.callOptions(g.opts.RespondTemperature)...)
	if err != nil {
		return replyFallback(&Failure{Kind: FailureTransport, Err: err})
	}
	if resp == nil || resp.Content == "" {
		return replyFallback(&Failure{Kind: FailureEmpty})
	}
	return Reply{Text: resp.Content}
}

func replyFallback(f *Failure) Reply {
	logx.Warn().Err(f).Msg("response generation degraded")
	return Reply{Text: ReplyFallback, Failure: f}
}

// CallWithTools 带工具的单轮调用，返回工具调用列表或最终文本
func (g *Gateway) CallWithTools(ctx context.Context, message string, tools []*schema.ToolInfo, systemPrompt string, history []*schema.Message) ToolDecision {
	toolModel, err := g.chatModel.WithTools(tools)
	if err != nil {
		return decisionFallback(&Failure{Kind: FailureTools, Err: err})
	}

	messages := g.buildMessages(systemPrompt, message, history, "")
	resp, err := toolModel.Generate(ctx, messages, g.callOptions(g.opts.ToolCallTemperature)...)
	if err != nil {
		return decisionFallback(&Failure{Kind: FailureTransport, Err: err})
	}
	if resp == nil {
		return decisionFallback(&Failure{Kind: FailureEmpty})
	}

	if len(resp.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			calls = append(calls, toToolCall(tc))
		}
		return ToolDecision{ToolCalls: calls}
	}

	if resp.Content == "" {
		return decisionFallback(&Failure{Kind: FailureEmpty})
	}
	return ToolDecision{Text: resp.Content}
}

func decisionFallback(f *Failure) ToolDecision {
	logx.Warn().Err(f).Msg("tool call decision degraded")
	return ToolDecision{Text: "I encountered an error: " + f.describe(), Failure: f}
}

// NewCallID 8 位调用 ID
func NewCallID() string {
	return uuid.NewString()[:8]
}

func toToolCall(tc schema.ToolCall) ToolCall {
	call := ToolCall{ID: tc.ID, Name: tc.Function.Name}
	if call.ID == "" {
		call.ID = NewCallID()
	}
	args, err := parseArguments(tc.Function.Arguments)
	if err != nil {
		call.ArgumentsErr = err
		return call
	}
	call.Arguments = args
	return call
}
