// Package logx 基于 zerolog 的全局日志
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerOpts 日志初始化选项
type LoggerOpts struct {
	Environment string
	Output      io.Writer
}

var defaultOpts = &LoggerOpts{Environment: "development"}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return defaultOpts
	}
	return &opts[0]
}

// Init 初始化全局 logger
// 生产环境输出 JSON + info 级别，其余环境输出彩色控制台 + debug 级别
func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	if strings.EqualFold(o.Environment, "production") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

// Logger 返回全局 logger，用于需要子 logger 的场景
func Logger() *zerolog.Logger {
	return &log.Logger
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
