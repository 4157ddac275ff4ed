package model

// Intent 用户意图（封闭枚举）
type Intent string

const (
	IntentProductSearch         Intent = "product_search"
	IntentProductRecommendation Intent = "product_recommendation"
	IntentProductDetails        Intent = "product_details"
	IntentOrderHelp             Intent = "order_help"
	IntentOrderStatus           Intent = "order_status"
	IntentGeneralQuestion       Intent = "general_question"
	IntentGreeting              Intent = "greeting"
	IntentFarewell              Intent = "farewell"
	IntentComplaint             Intent = "complaint"
	IntentUnknown               Intent = "unknown"
)

// AllIntents 全部意图，按分类提示词中的顺序
var AllIntents = []Intent{
	IntentProductSearch,
	IntentProductRecommendation,
	IntentProductDetails,
	IntentOrderHelp,
	IntentOrderStatus,
	IntentGeneralQuestion,
	IntentGreeting,
	IntentFarewell,
	IntentComplaint,
	IntentUnknown,
}

// ParseIntent 解析意图，未知取值返回 IntentUnknown
func ParseIntent(s string) Intent {
	for _, in := range AllIntents {
		if string(in) == s {
			return in
		}
	}
	return IntentUnknown
}

// IsProduct 是否商品类意图（进入工具循环）
func (i Intent) IsProduct() bool {
	switch i {
	case IntentProductSearch, IntentProductRecommendation, IntentProductDetails:
		return true
	}
	return false
}

// IsOrder 是否订单类意图
func (i Intent) IsOrder() bool {
	return i == IntentOrderHelp || i == IntentOrderStatus
}

// ExtractedEntities 意图识别附带的实体
// 所有字段可选，nil 表示未提及而不是零值
type ExtractedEntities struct {
	ProductNames []string       `json:"product_names,omitempty"`
	Categories   []string       `json:"categories,omitempty"`
	Brands       []string       `json:"brands,omitempty"`
	PriceMin     *float64       `json:"price_min,omitempty"`
	PriceMax     *float64       `json:"price_max,omitempty"`
	OrderID      *uint          `json:"order_id,omitempty"`
	Quantity     *int           `json:"quantity,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// IsEmpty 没有任何实体
func (e *ExtractedEntities) IsEmpty() bool {
	return e == nil || (len(e.ProductNames) == 0 && len(e.Categories) == 0 && len(e.Brands) == 0 &&
		e.PriceMin == nil && e.PriceMax == nil && e.OrderID == nil && e.Quantity == nil && len(e.Attributes) == 0)
}
