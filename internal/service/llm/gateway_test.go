package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imodel "github.com/ashwinyue/shop-ai/internal/model"
)

// mockChatModel 按顺序返回预设回复
type mockChatModel struct {
	replies  []*schema.Message
	err      error
	toolErr  error
	calls    [][]*schema.Message
	tools    []*schema.ToolInfo
	numCalls int
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.calls = append(m.calls, messages)
	if m.err != nil {
		return nil, m.err
	}
	if m.numCalls >= len(m.replies) {
		return &schema.Message{Role: schema.Assistant}, nil
	}
	r := m.replies[m.numCalls]
	m.numCalls++
	return r, nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if m.toolErr != nil {
		return nil, m.toolErr
	}
	m.tools = tools
	return m, nil
}

func assistant(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func history(n int) []*schema.Message {
	out := make([]*schema.Message, n)
	for i := range out {
		out[i] = schema.UserMessage(strings.Repeat("h", i+1))
	}
	return out
}

// ========== Classify 测试 ==========

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		check    func(t *testing.T, c Classification)
		wantFail bool
		failKind FailureKind
	}{
		{
			name:    "full payload",
			content: `{"intent":"product_search","confidence":0.92,"entities":{"categories":["electronics"],"price_max":100,"product_names":["headphones"]},"requires_clarification":false}`,
			check: func(t *testing.T, c Classification) {
				assert.Equal(t, imodel.IntentProductSearch, c.Intent)
				assert.InDelta(t, 0.92, c.Confidence, 1e-9)
				assert.Equal(t, []string{"electronics"}, c.Entities.Categories)
				require.NotNil(t, c.Entities.PriceMax)
				assert.Equal(t, 100.0, *c.Entities.PriceMax)
				assert.Nil(t, c.Entities.PriceMin)
			},
		},
		{
			name:    "unknown intent value",
			content: `{"intent":"buy_now","confidence":0.8}`,
			check: func(t *testing.T, c Classification) {
				assert.Equal(t, imodel.IntentUnknown, c.Intent)
				assert.Nil(t, c.Failure)
			},
		},
		{
			name:    "missing confidence defaults to half",
			content: `{"intent":"greeting"}`,
			check: func(t *testing.T, c Classification) {
				assert.Equal(t, imodel.IntentGreeting, c.Intent)
				assert.Equal(t, 0.5, c.Confidence)
			},
		},
		{
			name:    "order id as string",
			content: "```json\n{\"intent\":\"order_status\",\"confidence\":0.9,\"entities\":{\"order_id\":\"42\"}}\n```",
			check: func(t *testing.T, c Classification) {
				assert.Equal(t, imodel.IntentOrderStatus, c.Intent)
				require.NotNil(t, c.Entities.OrderID)
				assert.Equal(t, uint(42), *c.Entities.OrderID)
			},
		},
		{
			name:    "integer entities in range",
			content: `{"intent":"order_status","entities":{"order_id":4294967295,"quantity":-3}}`,
			check: func(t *testing.T, c Classification) {
				require.NotNil(t, c.Entities.OrderID)
				assert.Equal(t, uint(4294967295), *c.Entities.OrderID)
				require.NotNil(t, c.Entities.Quantity)
				assert.Equal(t, -3, *c.Entities.Quantity)
			},
		},
		{
			name:    "integer entities out of range are dropped",
			content: `{"intent":"order_status","entities":{"order_id":1e20,"quantity":1e30,"categories":["books"]}}`,
			check: func(t *testing.T, c Classification) {
				assert.Equal(t, imodel.IntentOrderStatus, c.Intent)
				assert.Nil(t, c.Entities.OrderID)
				assert.Nil(t, c.Entities.Quantity)
				assert.Equal(t, []string{"books"}, c.Entities.Categories)
			},
		},
		{
			name:    "negative order id is dropped",
			content: `{"intent":"order_status","entities":{"order_id":"-7","quantity":"2"}}`,
			check: func(t *testing.T, c Classification) {
				assert.Nil(t, c.Entities.OrderID)
				require.NotNil(t, c.Entities.Quantity)
				assert.Equal(t, 2, *c.Entities.Quantity)
			},
		},
		{
			name:    "clarification requested",
			content: `{"intent":"unknown","confidence":0.2,"requires_clarification":true,"clarification_question":"Which product?"}`,
			check: func(t *testing.T, c Classification) {
				assert.True(t, c.RequiresClarification)
				assert.Equal(t, "Which product?", c.ClarificationQuestion)
			},
		},
		{
			name:     "not json",
			content:  "I think the user wants headphones",
			wantFail: true,
			failKind: FailureParse,
		},
		{
			name:     "empty response",
			content:  "",
			wantFail: true,
			failKind: FailureEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(&mockChatModel{replies: []*schema.Message{assistant(tt.content)}}, Options{})
			c := gw.Classify(context.Background(), "show me headphones", nil)
			if tt.wantFail {
				require.NotNil(t, c.Failure)
				assert.Equal(t, tt.failKind, c.Failure.Kind)
				assert.Equal(t, imodel.IntentUnknown, c.Intent)
				assert.Equal(t, 0.0, c.Confidence)
				assert.True(t, c.RequiresClarification)
				assert.Equal(t, ClarificationFallback, c.ClarificationQuestion)
				assert.True(t, c.Entities.IsEmpty())
				return
			}
			require.Nil(t, c.Failure)
			tt.check(t, c)
		})
	}
}

func TestClassify_TransportFailure(t *testing.T) {
	gw := NewGateway(&mockChatModel{err: errors.New("connection refused")}, Options{})

	c := gw.Classify(context.Background(), "hello", history(3))
	require.NotNil(t, c.Failure)
	assert.Equal(t, FailureTransport, c.Failure.Kind)
	assert.Equal(t, imodel.IntentUnknown, c.Intent)
	assert.Equal(t, 0.0, c.Confidence)
	assert.True(t, c.RequiresClarification)
	assert.ErrorContains(t, c.Failure, "connection refused")
}

func TestClassify_PromptShape(t *testing.T) {
	m := &mockChatModel{replies: []*schema.Message{assistant(`{"intent":"greeting"}`)}}
	gw := NewGateway(m, Options{ClassifyWindow: 5})

	gw.Classify(context.Background(), "hi there", history(8))

	require.Len(t, m.calls, 1)
	msgs := m.calls[0]
	// system + 5 条历史 + 用户消息
	require.Len(t, msgs, 7)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, strings.Repeat("h", 4), msgs[1].Content)
	assert.Equal(t, "Classify this message: hi there", msgs[6].Content)
}

// ========== Respond 测试 ==========

func TestRespond(t *testing.T) {
	m := &mockChatModel{replies: []*schema.Message{assistant("Here are some headphones.")}}
	gw := NewGateway(m, Options{RespondWindow: 10})

	outputs := []ToolOutput{{Tool: "search_products", Result: []map[string]any{{"id": 1, "name": "Sonic"}}}}
	r := gw.Respond(context.Background(), "headphones", "sys", history(12), outputs)

	require.Nil(t, r.Failure)
	assert.Equal(t, "Here are some headphones.", r.Text)

	msgs := m.calls[0]
	// system + 10 条历史 + 工具结果 + 用户消息
	require.Len(t, msgs, 13)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, schema.System, msgs[11].Role)
	assert.Contains(t, msgs[11].Content, "**search_products**")
	assert.Equal(t, "headphones", msgs[12].Content)
}

func TestRespond_NoToolContext(t *testing.T) {
	m := &mockChatModel{replies: []*schema.Message{assistant("Hello!")}}
	gw := NewGateway(m, Options{})

	gw.Respond(context.Background(), "hi", "sys", nil, nil)
	require.Len(t, m.calls[0], 2)
}

func TestRespond_Fallback(t *testing.T) {
	tests := []struct {
		name string
		m    *mockChatModel
		kind FailureKind
	}{
		{"transport error", &mockChatModel{err: errors.New("timeout")}, FailureTransport},
		{"empty content", &mockChatModel{replies: []*schema.Message{assistant("")}}, FailureEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewGateway(tt.m, Options{}).Respond(context.Background(), "hi", "sys", nil, nil)
			assert.Equal(t, ReplyFallback, r.Text)
			require.NotNil(t, r.Failure)
			assert.Equal(t, tt.kind, r.Failure.Kind)
		})
	}
}

// ========== CallWithTools 测试 ==========

func TestCallWithTools_ToolCalls(t *testing.T) {
	m := &mockChatModel{replies: []*schema.Message{{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call_1", Function: schema.FunctionCall{Name: "search_products", Arguments: `{"query":"headphones","max_price":100}`}},
			{Function: schema.FunctionCall{Name: "get_user_orders", Arguments: ""}},
			{ID: "call_3", Function: schema.FunctionCall{Name: "get_product_details", Arguments: `{"product_id": 3,}`}},
		},
	}}}
	gw := NewGateway(m, Options{})
	infos := []*schema.ToolInfo{{Name: "search_products"}}

	d := gw.CallWithTools(context.Background(), "headphones under 100", infos, "sys", nil)

	require.Nil(t, d.Failure)
	assert.Empty(t, d.Text)
	require.Len(t, d.ToolCalls, 3)
	assert.Equal(t, infos, m.tools)

	assert.Equal(t, "call_1", d.ToolCalls[0].ID)
	assert.Equal(t, "headphones", d.ToolCalls[0].Arguments["query"])
	assert.Equal(t, 100.0, d.ToolCalls[0].Arguments["max_price"])

	assert.Len(t, d.ToolCalls[1].ID, 8)
	assert.Empty(t, d.ToolCalls[1].Arguments)
	assert.NoError(t, d.ToolCalls[1].ArgumentsErr)

	// 尾随逗号经修复后可解析
	require.NoError(t, d.ToolCalls[2].ArgumentsErr)
	assert.Equal(t, 3.0, d.ToolCalls[2].Arguments["product_id"])
}

func TestCallWithTools_Text(t *testing.T) {
	gw := NewGateway(&mockChatModel{replies: []*schema.Message{assistant("We have three options.")}}, Options{})

	d := gw.CallWithTools(context.Background(), "headphones", nil, "sys", nil)
	assert.Equal(t, "We have three options.", d.Text)
	assert.Empty(t, d.ToolCalls)
	assert.Nil(t, d.Failure)
}

func TestCallWithTools_Failure(t *testing.T) {
	tests := []struct {
		name string
		m    *mockChatModel
		kind FailureKind
	}{
		{"transport", &mockChatModel{err: errors.New("502 bad gateway")}, FailureTransport},
		{"binding", &mockChatModel{toolErr: errors.New("bad schema")}, FailureTools},
		{"empty", &mockChatModel{replies: []*schema.Message{assistant("")}}, FailureEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewGateway(tt.m, Options{}).CallWithTools(context.Background(), "x", nil, "sys", nil)
			require.NotNil(t, d.Failure)
			assert.Equal(t, tt.kind, d.Failure.Kind)
			assert.True(t, strings.HasPrefix(d.Text, "I encountered an error: "))
			assert.NotContains(t, d.Text, "502")
			assert.Empty(t, d.ToolCalls)
		})
	}
}

// ========== RenderToolContext 测试 ==========

func TestRenderToolContext(t *testing.T) {
	assert.Empty(t, RenderToolContext(nil))

	out := RenderToolContext([]ToolOutput{
		{Tool: "check_order_status", Result: map[string]any{"order_id": 42, "status": "shipped"}},
		{Result: "Order not found"},
	})
	assert.True(t, strings.HasPrefix(out, toolContextHeader))
	assert.Contains(t, out, "**check_order_status**:\n```json\n{\n  \"order_id\": 42,\n  \"status\": \"shipped\"\n}\n```\n\n")
	assert.Contains(t, out, "**unknown**:\n```json\n\"Order not found\"\n```")
}

// ========== repairJSON 测试 ==========

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"valid", `{"a":1}`, true},
		{"code fence", "```json\n{\"a\":1}\n```", true},
		{"surrounding text", `Sure! {"a":1} hope this helps`, true},
		{"trailing comma", `{"a":1,}`, true},
		{"missing brace", `{"a":1`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := repairJSON(tt.input)
			assert.Equal(t, tt.valid, json.Valid([]byte(out)), out)
		})
	}
}
