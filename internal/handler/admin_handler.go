package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/service"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

// AdminHandler 管理处理器
type AdminHandler struct {
	svc *service.Services
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(svc *service.Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// IndexProducts 重建全部在售商品的向量索引
// POST /api/v1/admin/index-products
func (h *AdminHandler) IndexProducts(c *gin.Context) {
	count, err := h.svc.Search.IndexAll(c.Request.Context(), h.svc.Config.Search.IndexBatchSize)
	if err != nil {
		errorResponse(c, err)
		return
	}
	logx.Info().Str("user_id", getUserID(c)).Int("count", count).Msg("products reindexed")
	success(c, gin.H{
		"message": fmt.Sprintf("Successfully indexed %d products", count),
		"count":   count,
	})
}
