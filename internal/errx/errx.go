// Package errx 定义带 HTTP 状态码与安全提示信息的应用错误
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage 内部错误时返回给调用方的提示
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage Redis 操作失败
	RedisErrorMessage = "redis operation failed"
	// DatabaseErrorMessage 数据库操作失败
	DatabaseErrorMessage = "database operation failed"
	// IndexErrorMessage 向量索引操作失败
	IndexErrorMessage = "vector index operation failed"
)

// AppError 包装底层错误，附带 HTTP 状态码和可暴露的提示
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap 支持 errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 判断底层错误是否匹配
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As 支持转换为 AppError 或链上的其它错误
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// New 创建 AppError
func New(err error, status int, message string) *AppError {
	return &AppError{Err: err, Status: status, Message: message}
}

// BadRequest 400
func BadRequest(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: message}
}

// NotFound 404
func NotFound(message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: message}
}

// Unauthorized 401
func Unauthorized(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: message}
}

// WrapRedis 统一包装 Redis 错误
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Status: http.StatusBadGateway, Message: RedisErrorMessage}
}

// WrapDB 统一包装数据库错误
func WrapDB(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Status: http.StatusInternalServerError, Message: DatabaseErrorMessage}
}

// WrapIndex 统一包装向量索引错误
func WrapIndex(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Status: http.StatusBadGateway, Message: IndexErrorMessage}
}

// StatusOf 返回错误对应的 HTTP 状态码与可暴露信息
// 非 AppError 与 5xx 错误统一返回 SystemErrorMessage
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			return appErr.Status, SystemErrorMessage
		}
		return appErr.Status, appErr.Message
	}
	return http.StatusInternalServerError, SystemErrorMessage
}
