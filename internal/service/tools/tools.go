// Package tools 购物助手的工具执行层
// 工具集合固定，每个工具有声明的参数 schema，执行前先按 schema 校验参数
// Execute 对任何输入都返回 ToolResult，失败以结果形式返回，不向上抛出
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/service/search"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// Name 工具标识
type Name string

const (
	SearchProducts     Name = "search_products"
	GetProductDetails  Name = "get_product_details"
	GetRecommendations Name = "get_recommendations"
	CheckOrderStatus   Name = "check_order_status"
	GetUserOrders      Name = "get_user_orders"
)

// ErrorKind 失败类别
type ErrorKind string

const (
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindNotFound         ErrorKind = "not_found"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindInternal         ErrorKind = "internal"
)

// suggestionPreview 每次调用最多提取的推荐商品数
const suggestionPreview = 5

// Invocation 一次工具调用请求
type Invocation struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// ToolResult 工具执行结果，Result 与 Error 只有一个有值
type ToolResult struct {
	CallID   string          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Success  bool            `json:"success"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error_message,omitempty"`
	Kind     ErrorKind       `json:"error_kind,omitempty"`

	productIDs []uint
}

// ProductIDs 商品类工具返回的商品 ID（最多 5 个），其它工具返回 nil
func (r ToolResult) ProductIDs() []uint {
	return r.productIDs
}

// toolError 带类别的工具错误
type toolError struct {
	kind ErrorKind
	msg  string
}

func (e *toolError) Error() string { return e.msg }

func newToolError(kind ErrorKind, format string, args ...any) *toolError {
	return &toolError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// ProductSearcher 工具依赖的检索能力
type ProductSearcher interface {
	Search(ctx context.Context, q search.Query) ([]search.Result, error)
	FindSimilar(ctx context.Context, productID uint, topK int) ([]search.Result, error)
}

// output 工具输出，products 为参与推荐提取的商品 ID
type output struct {
	value    any
	products []uint
}

// entry 注册表中的一个工具
type entry struct {
	name   Name
	desc   string
	params map[string]*schema.ParameterInfo
	run    func(ctx context.Context, args map[string]any, userID string) (output, error)
}

// typed 把参数解码为具体类型后再调用处理函数
func typed[T any](fn func(ctx context.Context, in T, userID string) (output, error)) func(context.Context, map[string]any, string) (output, error) {
	return func(ctx context.Context, args map[string]any, userID string) (output, error) {
		var in T
		raw, err := json.Marshal(args)
		if err != nil {
			return output{}, newToolError(KindInvalidArguments, "invalid arguments: %v", err)
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return output{}, newToolError(KindInvalidArguments, "invalid arguments: %v", err)
		}
		return fn(ctx, in, userID)
	}
}

// Registry 工具注册表
type Registry struct {
	searcher ProductSearcher
	catalog  repository.CatalogRepository
	orders   repository.OrderRepository
	maxLimit int

	entries map[Name]*entry
	order   []Name
}

// NewRegistry 创建工具注册表
func NewRegistry(searcher ProductSearcher, catalog repository.CatalogRepository, orders repository.OrderRepository, maxLimit int) *Registry {
	if maxLimit <= 0 {
		maxLimit = 10
	}
	r := &Registry{
		searcher: searcher,
		catalog:  catalog,
		orders:   orders,
		maxLimit: maxLimit,
		entries:  make(map[Name]*entry),
	}
	r.register()
	return r
}

func (r *Registry) add(e *entry) {
	r.entries[e.name] = e
	r.order = append(r.order, e.name)
}

// Infos 全部工具的 schema，按注册顺序
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		infos = append(infos, &schema.ToolInfo{
			Name:        string(e.name),
			Desc:        e.desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(e.params),
		})
	}
	return infos
}

// Names 已注册工具名，按字母序
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Execute 执行工具，任何失败都以 Success=false 的结果返回
func (r *Registry) Execute(ctx context.Context, inv Invocation, userID string) (result ToolResult) {
	callID := inv.CallID
	if callID == "" {
		callID = uuid.NewString()[:8]
	}
	result = ToolResult{CallID: callID, ToolName: inv.Name}

	defer func() {
		if p := recover(); p != nil {
			logx.Error().Str("tool", inv.Name).Interface("panic", p).Msg("tool panicked")
			result = failed(result, KindInternal, fmt.Sprintf("Tool %s failed unexpectedly", inv.Name))
		}
	}()

	e, ok := r.entries[Name(inv.Name)]
	if !ok {
		return failed(result, KindUnknownTool, "Unknown tool: "+inv.Name)
	}

	args, err := validateArgs(e.params, inv.Arguments)
	if err != nil {
		return failed(result, KindInvalidArguments, err.Error())
	}

	out, err := e.run(ctx, args, userID)
	if err != nil {
		kind, msg := classify(e.name, err)
		if kind == KindInternal {
			logx.Error().Err(err).Str("tool", inv.Name).Str("call_id", callID).Msg("tool execution failed")
		}
		return failed(result, kind, msg)
	}

	raw, err := json.Marshal(out.value)
	if err != nil {
		logx.Error().Err(err).Str("tool", inv.Name).Msg("marshal tool result")
		return failed(result, KindInternal, fmt.Sprintf("Tool %s returned an unreadable result", inv.Name))
	}
	result.Success = true
	result.Result = raw
	if len(out.products) > suggestionPreview {
		out.products = out.products[:suggestionPreview]
	}
	result.productIDs = out.products
	return result
}

// InvalidArguments 参数无法解析时直接构造失败结果
func InvalidArguments(inv Invocation, err error) ToolResult {
	callID := inv.CallID
	if callID == "" {
		callID = uuid.NewString()[:8]
	}
	return failed(ToolResult{CallID: callID, ToolName: inv.Name}, KindInvalidArguments, err.Error())
}

func failed(r ToolResult, kind ErrorKind, msg string) ToolResult {
	r.Success = false
	r.Result = nil
	r.Kind = kind
	r.Error = msg
	return r
}

// classify 将处理函数的错误映射为失败类别与可读信息
// 底层存储错误只暴露安全提示
func classify(name Name, err error) (ErrorKind, string) {
	var te *toolError
	if errors.As(err, &te) {
		return te.kind, te.msg
	}
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		switch appErr.Status {
		case http.StatusBadRequest:
			return KindInvalidArguments, appErr.Message
		case http.StatusNotFound:
			return KindNotFound, appErr.Message
		case http.StatusUnauthorized:
			return KindUnauthenticated, appErr.Message
		}
		return KindInternal, fmt.Sprintf("Tool %s failed: %s", name, appErr.Message)
	}
	return KindInternal, fmt.Sprintf("Tool %s failed: %s", name, errx.SystemErrorMessage)
}
