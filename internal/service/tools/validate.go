package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// validateArgs 按声明的参数校验并规范化参数
// 缺少必填参数或类型不符时返回错误；数字字符串会转换为数字；未声明的参数被丢弃
func validateArgs(params map[string]*schema.ParameterInfo, args map[string]any) (map[string]any, error) {
	clean := make(map[string]any, len(params))

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := params[name]
		v, ok := args[name]
		if !ok || v == nil {
			if p.Required {
				return nil, fmt.Errorf("missing required argument: %s", name)
			}
			continue
		}

		norm, err := coerce(p.Type, v)
		if err != nil {
			return nil, fmt.Errorf("argument %s %v", name, err)
		}
		clean[name] = norm
	}
	return clean, nil
}

func coerce(t schema.DataType, v any) (any, error) {
	switch t {
	case schema.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("must be a string")
	case schema.Number:
		f, ok := number(v)
		if !ok {
			return nil, fmt.Errorf("must be a number")
		}
		return f, nil
	case schema.Integer:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("must be an integer")
		}
		return int64(f), nil
	case schema.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("must be a boolean")
	}
	return v, nil
}

func number(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
