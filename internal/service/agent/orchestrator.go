// Package agent 购物助手编排：意图分类 -> 按意图分支 -> 工具循环 -> 生成回复 -> 持久化
package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/shop-ai/internal/config"
	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/service/llm"
	"github.com/ashwinyue/shop-ai/internal/service/tools"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// ========== 依赖接口 ==========

// Gateway 语言模型网关
type Gateway interface {
	Classify(ctx context.Context, message string, history []*schema.Message) llm.Classification
	Respond(ctx context.Context, message, systemPrompt string, history []*schema.Message, outputs []llm.ToolOutput) llm.Reply
	CallWithTools(ctx context.Context, message string, infos []*schema.ToolInfo, systemPrompt string, history []*schema.Message) llm.ToolDecision
}

// ToolExecutor 工具执行层
type ToolExecutor interface {
	Infos() []*schema.ToolInfo
	Execute(ctx context.Context, inv tools.Invocation, userID string) tools.ToolResult
}

// ConversationStore 会话状态存储
type ConversationStore interface {
	ResolveSession(ctx context.Context, sessionID string, userID *string) (*model.ConversationSession, error)
	RecentHistory(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error)
	AppendUserMessage(ctx context.Context, sessionID, content string, intent model.Intent, entities *model.ExtractedEntities) error
	AppendAssistantMessage(ctx context.Context, sessionID, content string, toolCalls []string, toolResults []json.RawMessage) error
}

// ========== 请求与响应 ==========

// Request 一轮对话的输入，UserID 为空表示未登录
type Request struct {
	Message   string
	SessionID string
	UserID    string
}

// Response 一轮对话的输出
type Response struct {
	Response          string                  `json:"response"`
	SessionID         string                  `json:"session_id"`
	Intent            model.Intent            `json:"intent"`
	Entities          model.ExtractedEntities `json:"entities"`
	Suggestions       []*model.Product        `json:"suggestions"`
	ToolCallsMade     []string                `json:"tool_calls_made"`
	FollowUpQuestions []string                `json:"follow_up_questions"`
}

// Config 编排参数
type Config struct {
	MaxToolIterations int
	HistoryLimit      int
	MaxSuggestions    int
	SystemPrompt      string
}

// ConfigFrom 从应用配置构造编排参数
func ConfigFrom(cfg *config.AgentConfig) Config {
	return Config{
		MaxToolIterations: cfg.MaxToolIterations,
		HistoryLimit:      cfg.HistoryLimit,
		MaxSuggestions:    cfg.MaxSuggestions,
		SystemPrompt:      cfg.SystemPrompt,
	}
}

// Orchestrator 购物助手编排器
type Orchestrator struct {
	gateway Gateway
	tools   ToolExecutor
	store   ConversationStore
	catalog repository.CatalogRepository
	cfg     Config
}

// NewOrchestrator 创建编排器
func NewOrchestrator(gateway Gateway, toolExec ToolExecutor, store ConversationStore, catalog repository.CatalogRepository, cfg Config) *Orchestrator {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = llm.DefaultSystemPrompt
	}
	return &Orchestrator{gateway: gateway, tools: toolExec, store: store, catalog: catalog, cfg: cfg}
}

// ========== 分支 ==========

type branch string

const (
	branchDirect      branch = "direct_response"
	branchToolLoop    branch = "tool_loop"
	branchOrderLookup branch = "order_lookup"
)

// route 按意图选择分支
func route(intent model.Intent) branch {
	switch {
	case intent.IsProduct():
		return branchToolLoop
	case intent.IsOrder():
		return branchOrderLookup
	default:
		return branchDirect
	}
}

var followUps = map[model.Intent][]string{
	model.IntentProductSearch: {
		"Would you like me to filter by price range?",
		"Should I show more options?",
		"Want details about any of these products?",
	},
	model.IntentProductRecommendation: {
		"Would you like me to filter by price range?",
		"Should I show more options?",
		"Want details about any of these products?",
	},
	model.IntentProductDetails: {
		"Would you like to see similar products?",
		"Any questions about this product?",
	},
}

// FollowUpQuestions 按意图给出追问建议，仅商品类意图有
func FollowUpQuestions(intent model.Intent) []string {
	qs, ok := followUps[intent]
	if !ok {
		return nil
	}
	out := make([]string, len(qs))
	copy(out, qs)
	return out
}

// ========== 单轮处理 ==========

// turn 单轮对话中累积的工具调用
type turn struct {
	toolNames   []string
	toolResults []json.RawMessage
	outputs     []llm.ToolOutput
	productIDs  []uint
}

func (t *turn) record(res tools.ToolResult) {
	t.toolNames = append(t.toolNames, res.ToolName)
	if raw, err := json.Marshal(res); err == nil {
		t.toolResults = append(t.toolResults, raw)
	}

	out := llm.ToolOutput{Tool: res.ToolName}
	if res.Success {
		out.Result = res.Result
	} else {
		out.Result = map[string]string{"error": res.Error}
	}
	t.outputs = append(t.outputs, out)
	t.productIDs = append(t.productIDs, res.ProductIDs()...)
}

// Chat 处理一条用户消息
// 用户消息在分类后立即写入；工具失败不会中断本轮，存储失败会返回错误
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errx.BadRequest("message must not be empty")
	}

	var userPtr *string
	if req.UserID != "" {
		userPtr = &req.UserID
	}

	sess, err := o.store.ResolveSession(ctx, req.SessionID, userPtr)
	if err != nil {
		return nil, err
	}

	history, err := o.store.RecentHistory(ctx, sess.ID, o.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	cls := o.gateway.Classify(ctx, message, history)
	if err := o.store.AppendUserMessage(ctx, sess.ID, message, cls.Intent, &cls.Entities); err != nil {
		return nil, err
	}

	b := route(cls.Intent)
	logx.Debug().Str("session_id", sess.ID).Str("intent", string(cls.Intent)).Str("branch", string(b)).Msg("intent classified")

	t := &turn{}
	var text string
	switch b {
	case branchToolLoop:
		text = o.toolLoop(ctx, message, history, req.UserID, t)
	case branchOrderLookup:
		text = o.orderLookup(ctx, message, history, req.UserID, cls.Entities, t)
	default:
		text = o.gateway.Respond(ctx, message, o.cfg.SystemPrompt, history, nil).Text
	}

	if err := o.store.AppendAssistantMessage(ctx, sess.ID, text, t.toolNames, t.toolResults); err != nil {
		return nil, err
	}

	resp := &Response{
		Response:          text,
		SessionID:         sess.ID,
		Intent:            cls.Intent,
		Entities:          cls.Entities,
		Suggestions:       o.suggestions(ctx, t.productIDs),
		FollowUpQuestions: FollowUpQuestions(cls.Intent),
	}
	if len(t.toolNames) > 0 {
		resp.ToolCallsMade = t.toolNames
	}
	return resp, nil
}

// toolLoop 商品类意图的工具循环，最多 MaxToolIterations 轮
// 模型直接给出文本时提前结束；轮次用完仍无文本时基于已有工具结果生成回复
func (o *Orchestrator) toolLoop(ctx context.Context, message string, history []*schema.Message, userID string, t *turn) string {
	infos := o.tools.Infos()

	for round := 0; round < o.cfg.MaxToolIterations; round++ {
		contextHistory := history
		if len(t.outputs) > 0 {
			contextHistory = make([]*schema.Message, 0, len(history)+1)
			contextHistory = append(contextHistory, history...)
			contextHistory = append(contextHistory, schema.AssistantMessage("Tool results so far: "+marshalOutputs(t.outputs), nil))
		}

		decision := o.gateway.CallWithTools(ctx, message, infos, o.cfg.SystemPrompt, contextHistory)
		if len(decision.ToolCalls) == 0 {
			if decision.Failure != nil && decision.Failure.Kind == llm.FailureEmpty {
				break
			}
			return decision.Text
		}

		// 按模型返回的顺序依次执行
		for _, call := range decision.ToolCalls {
			inv := tools.Invocation{CallID: call.ID, Name: call.Name, Arguments: call.Arguments}
			var res tools.ToolResult
			if call.ArgumentsErr != nil {
				res = tools.InvalidArguments(inv, call.ArgumentsErr)
			} else {
				res = o.tools.Execute(ctx, inv, userID)
			}
			if !res.Success {
				logx.Warn().Str("tool", res.ToolName).Str("kind", string(res.Kind)).Str("error", res.Error).Msg("tool call failed")
			}
			t.record(res)
		}
	}

	return o.gateway.Respond(ctx, message, o.cfg.SystemPrompt, history, t.outputs).Text
}

// orderLookup 订单类意图：有订单号查单个订单，已登录则列出订单，否则不调用工具
func (o *Orchestrator) orderLookup(ctx context.Context, message string, history []*schema.Message, userID string, entities model.ExtractedEntities, t *turn) string {
	switch {
	case entities.OrderID != nil:
		t.record(o.tools.Execute(ctx, tools.Invocation{
			Name:      string(tools.CheckOrderStatus),
			Arguments: map[string]any{"order_id": float64(*entities.OrderID)},
		}, userID))
	case userID != "":
		t.record(o.tools.Execute(ctx, tools.Invocation{
			Name:      string(tools.GetUserOrders),
			Arguments: map[string]any{},
		}, userID))
	}
	return o.gateway.Respond(ctx, message, o.cfg.SystemPrompt, history, t.outputs).Text
}

// suggestions 以商品库为准回填推荐商品，去重并截断
func (o *Orchestrator) suggestions(ctx context.Context, ids []uint) []*model.Product {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	products, err := o.catalog.GetByIDs(ctx, unique)
	if err != nil {
		logx.Warn().Err(err).Msg("load suggestions failed")
		return nil
	}

	out := make([]*model.Product, 0, o.cfg.MaxSuggestions)
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		out = append(out, p)
		if len(out) == o.cfg.MaxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func marshalOutputs(outputs []llm.ToolOutput) string {
	raw, err := json.Marshal(outputs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
