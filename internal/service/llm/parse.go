package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	imodel "github.com/ashwinyue/shop-ai/internal/model"
)

// repairJSON 修复模型输出的 JSON
// 策略：先尝试快速路径（有效 JSON 直接返回），再尝试修复
func repairJSON(input string) string {
	s := strings.TrimSpace(input)

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && json.Valid([]byte(s)) {
		return s
	}

	// 去掉 markdown 代码块
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// 提取 JSON 对象区域
	i := strings.IndexByte(s, '{')
	j := strings.LastIndexByte(s, '}')
	if i >= 0 && j >= i {
		sub := s[i : j+1]
		if json.Valid([]byte(sub)) {
			return sub
		}
		s = sub
	}

	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return out
}

// parseArguments 解析工具参数，空串视为无参数
func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(repairJSON(raw)), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// rawClassification 模型输出的分类 JSON
type rawClassification struct {
	Intent                string         `json:"intent"`
	Confidence            *float64       `json:"confidence"`
	Entities              map[string]any `json:"entities"`
	RequiresClarification bool           `json:"requires_clarification"`
	ClarificationQuestion *string        `json:"clarification_question"`
}

// parseClassification 解析分类输出
// 未知意图归为 unknown，缺省置信度 0.5
func parseClassification(content string) (Classification, error) {
	var raw rawClassification
	if err := json.Unmarshal([]byte(repairJSON(content)), &raw); err != nil {
		return Classification{}, err
	}

	c := Classification{
		Intent:                imodel.ParseIntent(raw.Intent),
		Confidence:            0.5,
		Entities:              parseEntities(raw.Entities),
		RequiresClarification: raw.RequiresClarification,
	}
	if raw.Confidence != nil {
		c.Confidence = math.Max(0, math.Min(1, *raw.Confidence))
	}
	if raw.ClarificationQuestion != nil {
		c.ClarificationQuestion = *raw.ClarificationQuestion
	}
	return c, nil
}

// parseEntities 宽松解析实体，类型不符的字段视为未提及
func parseEntities(m map[string]any) imodel.ExtractedEntities {
	var e imodel.ExtractedEntities
	if m == nil {
		return e
	}
	e.ProductNames = toStrings(m["product_names"])
	e.Categories = toStrings(m["categories"])
	e.Brands = toStrings(m["brands"])
	if v, ok := toFloat(m["price_min"]); ok {
		e.PriceMin = &v
	}
	if v, ok := toFloat(m["price_max"]); ok {
		e.PriceMax = &v
	}
	// 超出整数范围的值视为未提及
	if v, ok := toFloat(m["order_id"]); ok && v > 0 && v <= math.MaxUint32 && v == math.Trunc(v) {
		id := uint(v)
		e.OrderID = &id
	}
	if v, ok := toFloat(m["quantity"]); ok && v >= math.MinInt32 && v <= math.MaxInt32 && v == math.Trunc(v) {
		q := int(v)
		e.Quantity = &q
	}
	if attrs, ok := m["attributes"].(map[string]any); ok && len(attrs) > 0 {
		e.Attributes = attrs
	}
	return e
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if t != "" {
			return []string{t}
		}
	}
	return nil
}

var errNotNumber = errors.New("not a number")

func toFloat(v any) (float64, bool) {
	f, err := asFloat(v)
	return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func asFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(t), "#")
		s = strings.TrimPrefix(s, "$")
		return strconv.ParseFloat(s, 64)
	}
	return 0, errNotNumber
}
