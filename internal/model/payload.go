package model

import (
	"encoding/json"
	"fmt"
)

// PayloadVersion 会话消息序列化载荷的当前版本
//
// 载荷格式：{"v":1,"data":<json>}
//   - entities:     ExtractedEntities
//   - tool_calls:   []string，工具名，按调用顺序
//   - tool_results: []json.RawMessage，每项为一个 ToolResult
const PayloadVersion = 1

type payloadEnvelope struct {
	V    int             `json:"v"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload 编码为带版本的载荷，nil 值返回 nil
func EncodePayload(data any) (*string, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out, err := json.Marshal(payloadEnvelope{V: PayloadVersion, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	s := string(out)
	return &s, nil
}

// DecodePayload 解码载荷到 dst，空载荷不做任何事
func DecodePayload(src *string, dst any) error {
	if src == nil || *src == "" {
		return nil
	}
	var env payloadEnvelope
	if err := json.Unmarshal([]byte(*src), &env); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if env.V != PayloadVersion {
		return fmt.Errorf("decode payload: unsupported version %d", env.V)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
