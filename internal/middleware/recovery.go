package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/errx"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// RecoveryMiddleware 恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logx.Error().Interface("panic", err).Bytes("stack", debug.Stack()).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    -1,
					"message": errx.SystemErrorMessage,
				})
			}
		}()
		c.Next()
	}
}
