package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/shop-ai/internal/service"
	"github.com/ashwinyue/shop-ai/internal/service/search"
)

const (
	maxSearchLimit        = 50
	defaultSearchLimit    = 10
	maxRecommendLimit     = 20
	defaultRecommendLimit = 5
)

// SearchHandler 语义检索处理器
type SearchHandler struct {
	svc *service.Services
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(svc *service.Services) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query    string   `json:"query" binding:"required"`
	Category string   `json:"category"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
	Limit    int      `json:"limit"`
}

// SearchResponse 检索结果
type SearchResponse struct {
	Results []search.Result `json:"results"`
	Total   int             `json:"total"`
}

// Search 语义检索商品
// POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit < 0 || req.Limit > maxSearchLimit {
		badRequest(c, "limit must be between 1 and 50")
		return
	}

	results, err := h.svc.Search.Search(c.Request.Context(), search.Query{
		Text:     req.Query,
		TopK:     req.Limit,
		Category: req.Category,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	})
	if err != nil {
		errorResponse(c, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	success(c, SearchResponse{Results: results, Total: len(results)})
}

// Recommendations 相似商品推荐
// GET /api/v1/products/:id/recommendations?limit=
func (h *SearchHandler) Recommendations(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecommendLimit)))
	if err != nil || limit < 1 || limit > maxRecommendLimit {
		badRequest(c, "limit must be between 1 and 20")
		return
	}

	results, err := h.svc.Search.FindSimilar(c.Request.Context(), uint(id), limit)
	if err != nil {
		errorResponse(c, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	success(c, gin.H{"recommendations": results})
}
