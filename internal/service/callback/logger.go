// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// previewLen 日志中消息内容的最大长度
const previewLen = 200

type startKey struct{}

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，记录模型调用的耗时、用量和错误
type Logger struct {
	EnableDebug bool
	log         *zerolog.Logger
}

var _ callbacks.Handler = (*Logger)(nil)

// NewLogger 创建日志回调处理器，log 为 nil 时使用全局 logger
func NewLogger(enableDebug bool, log *zerolog.Logger) *Logger {
	if log == nil {
		log = logx.Logger()
	}
	return &Logger{EnableDebug: enableDebug, log: log}
}

func event(l *zerolog.Logger, lvl zerolog.Level, info *callbacks.RunInfo) *zerolog.Event {
	e := l.WithLevel(lvl)
	if info != nil {
		e = e.Str("name", info.Name).Str("type", info.Type).Str("component", string(info.Component))
	}
	return e
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	ctx = context.WithValue(ctx, startKey{}, time.Now())
	if !l.EnableDebug {
		return ctx
	}

	e := event(l.log, zerolog.DebugLevel, info)
	if in := model.ConvCallbackInput(input); in != nil {
		e = e.Int("messages", len(in.Messages)).Int("tools", len(in.Tools))
		if n := len(in.Messages); n > 0 {
			e = e.Str("last_message", preview(in.Messages[n-1]))
		}
	}
	e.Msg("eino start")
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if !l.EnableDebug {
		return ctx
	}

	e := event(l.log, zerolog.DebugLevel, info)
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		e = e.Dur("elapsed", time.Since(start))
	}
	if out := model.ConvCallbackOutput(output); out != nil {
		if out.TokenUsage != nil {
			e = e.Int("prompt_tokens", out.TokenUsage.PromptTokens).
				Int("completion_tokens", out.TokenUsage.CompletionTokens)
		}
		if out.Message != nil {
			e = e.Int("tool_calls", len(out.Message.ToolCalls)).Str("output", preview(out.Message))
		}
	}
	e.Msg("eino end")
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	e := event(l.log, zerolog.WarnLevel, info).Err(err)
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		e = e.Dur("elapsed", time.Since(start))
	}
	e.Msg("eino error")
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用，读取方负责关闭流
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return context.WithValue(ctx, startKey{}, time.Now())
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.EnableDebug {
		event(l.log, zerolog.DebugLevel, info).Msg("eino stream end")
	}
	return ctx
}

func preview(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	r := []rune(msg.Content)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return string(r)
}

// SetupGlobalCallbacks 设置全局回调
func SetupGlobalCallbacks(enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(enableDebug, nil))
	logx.Info().Bool("debug", enableDebug).Msg("eino global callbacks registered")
}
