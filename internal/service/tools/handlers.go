package tools

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/shop-ai/internal/errx"
	"github.com/ashwinyue/shop-ai/internal/model"
	"github.com/ashwinyue/shop-ai/internal/service/search"
)

const defaultLimit = 5

// ProductHit 带相似度的商品
type ProductHit struct {
	*model.Product
	Similarity float64 `json:"similarity"`
}

// OrderStatus 单个订单状态
type OrderStatus struct {
	OrderID         uint    `json:"order_id"`
	Status          string  `json:"status"`
	TotalAmount     float64 `json:"total_amount"`
	CreatedAt       string  `json:"created_at"`
	ShippingAddress string  `json:"shipping_address"`
}

// OrderSummary 订单列表项
type OrderSummary struct {
	OrderID     uint    `json:"order_id"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	CreatedAt   string  `json:"created_at"`
}

type searchInput struct {
	Query    string   `json:"query"`
	Category string   `json:"category"`
	MinPrice *float64 `json:"min_price"`
	MaxPrice *float64 `json:"max_price"`
	Limit    *int     `json:"limit"`
}

type detailsInput struct {
	ProductID   *uint  `json:"product_id"`
	ProductName string `json:"product_name"`
}

type recommendInput struct {
	ProductID   *uint  `json:"product_id"`
	Category    string `json:"category"`
	Preferences string `json:"preferences"`
	Limit       *int   `json:"limit"`
}

type orderInput struct {
	OrderID uint `json:"order_id"`
}

type noInput struct{}

// register 注册全部工具
func (r *Registry) register() {
	r.add(&entry{
		name: SearchProducts,
		desc: "Search for products using semantic search. Use this when the user wants to find or browse products.",
		params: map[string]*schema.ParameterInfo{
			"query":     {Type: schema.String, Desc: "The search query describing what products to find", Required: true},
			"category":  {Type: schema.String, Desc: "Optional category to filter by (e.g., 'electronics', 'clothing')"},
			"min_price": {Type: schema.Number, Desc: "Optional minimum price filter"},
			"max_price": {Type: schema.Number, Desc: "Optional maximum price filter"},
			"limit":     {Type: schema.Integer, Desc: "Number of results to return (default 5, max 10)"},
		},
		run: typed(r.searchProducts),
	})
	r.add(&entry{
		name: GetProductDetails,
		desc: "Get detailed information about a specific product by ID or name.",
		params: map[string]*schema.ParameterInfo{
			"product_id":   {Type: schema.Integer, Desc: "The product ID"},
			"product_name": {Type: schema.String, Desc: "The product name to search for"},
		},
		run: typed(r.getProductDetails),
	})
	r.add(&entry{
		name: GetRecommendations,
		desc: "Get product recommendations based on a product, category, or user preferences.",
		params: map[string]*schema.ParameterInfo{
			"product_id":  {Type: schema.Integer, Desc: "Product ID to find similar products for"},
			"category":    {Type: schema.String, Desc: "Category to get recommendations from"},
			"preferences": {Type: schema.String, Desc: "Description of user preferences"},
			"limit":       {Type: schema.Integer, Desc: "Number of recommendations (default 5)"},
		},
		run: typed(r.getRecommendations),
	})
	r.add(&entry{
		name: CheckOrderStatus,
		desc: "Check the status of an order by order ID.",
		params: map[string]*schema.ParameterInfo{
			"order_id": {Type: schema.Integer, Desc: "The order ID to check", Required: true},
		},
		run: typed(r.checkOrderStatus),
	})
	r.add(&entry{
		name:   GetUserOrders,
		desc:   "Get all orders for the current authenticated user.",
		params: map[string]*schema.ParameterInfo{},
		run:    typed(r.getUserOrders),
	})
}

// clampLimit 缺省 5，限制在 [1, maxLimit]
func (r *Registry) clampLimit(limit *int) int {
	if limit == nil {
		return defaultLimit
	}
	n := *limit
	if n < 1 {
		n = 1
	}
	if n > r.maxLimit {
		n = r.maxLimit
	}
	return n
}

func hits(results []search.Result) output {
	list := make([]ProductHit, 0, len(results))
	ids := make([]uint, 0, len(results))
	for _, res := range results {
		list = append(list, ProductHit{Product: res.Product, Similarity: res.Similarity})
		ids = append(ids, res.Product.ID)
	}
	return output{value: list, products: ids}
}

// ========== 商品工具 ==========

func (r *Registry) searchProducts(ctx context.Context, in searchInput, _ string) (output, error) {
	results, err := r.searcher.Search(ctx, search.Query{
		Text:     in.Query,
		TopK:     r.clampLimit(in.Limit),
		Category: in.Category,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
	})
	if err != nil {
		return output{}, err
	}
	return hits(results), nil
}

func (r *Registry) getProductDetails(ctx context.Context, in detailsInput, _ string) (output, error) {
	var product *model.Product
	switch {
	case in.ProductID != nil && *in.ProductID > 0:
		p, err := r.catalog.GetByID(ctx, *in.ProductID)
		if err != nil {
			return output{}, errx.WrapDB(err)
		}
		if p != nil && p.IsActive {
			product = p
		}
	case in.ProductName != "":
		// 按名称查找时取语义检索的第一条
		results, err := r.searcher.Search(ctx, search.Query{Text: in.ProductName, TopK: 1})
		if err != nil {
			return output{}, err
		}
		if len(results) > 0 {
			product = results[0].Product
		}
	default:
		return output{}, newToolError(KindInvalidArguments, "Provide product_id or product_name")
	}

	if product == nil {
		return output{}, newToolError(KindNotFound, "Product not found")
	}
	return output{value: product, products: []uint{product.ID}}, nil
}

func (r *Registry) getRecommendations(ctx context.Context, in recommendInput, _ string) (output, error) {
	limit := r.clampLimit(in.Limit)

	switch {
	case in.ProductID != nil && *in.ProductID > 0:
		results, err := r.searcher.FindSimilar(ctx, *in.ProductID, limit)
		if err != nil {
			return output{}, err
		}
		return hits(results), nil

	case in.Preferences != "" || in.Category != "":
		text := in.Preferences
		if text == "" {
			text = in.Category
		}
		results, err := r.searcher.Search(ctx, search.Query{Text: text, TopK: limit, Category: in.Category})
		if err != nil {
			return output{}, err
		}
		return hits(results), nil
	}

	// 没有任何线索时返回前几个上架商品
	products, err := r.catalog.ListActive(ctx, 0, limit, "")
	if err != nil {
		return output{}, errx.WrapDB(err)
	}
	results := make([]search.Result, 0, len(products))
	for _, p := range products {
		results = append(results, search.Result{Product: p, Similarity: 1.0})
	}
	return hits(results), nil
}

// ========== 订单工具 ==========

func (r *Registry) checkOrderStatus(ctx context.Context, in orderInput, _ string) (output, error) {
	order, err := r.orders.GetByID(ctx, in.OrderID)
	if err != nil {
		return output{}, errx.WrapDB(err)
	}
	if order == nil {
		return output{}, newToolError(KindNotFound, "Order not found")
	}
	return output{value: OrderStatus{
		OrderID:         order.ID,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		ShippingAddress: order.ShippingAddress,
	}}, nil
}

func (r *Registry) getUserOrders(ctx context.Context, _ noInput, userID string) (output, error) {
	if userID == "" {
		return output{}, newToolError(KindUnauthenticated, "Please log in to view your orders")
	}
	orders, err := r.orders.ListForUser(ctx, userID)
	if err != nil {
		return output{}, errx.WrapDB(err)
	}
	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, OrderSummary{
			OrderID:     o.ID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		})
	}
	return output{value: summaries}, nil
}
