package model

import "time"

// Product 商品（目录只读，助手不修改商品数据）
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         float64   `gorm:"not null;index" json:"price"`
	Category      string    `gorm:"size:100;not null;index" json:"category"`
	Brand         string    `gorm:"size:100" json:"brand"`
	ImageURL      string    `gorm:"size:512" json:"image_url"`
	StockQuantity int       `gorm:"default:0" json:"stock_quantity"`
	IsActive      bool      `gorm:"index;not null" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Order 订单（助手只读）
type Order struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"size:36;not null;index" json:"user_id"`
	TotalAmount     float64   `gorm:"not null" json:"total_amount"`
	Status          string    `gorm:"size:20;default:pending" json:"status"` // pending, confirmed, shipped, delivered, cancelled
	ShippingAddress string    `gorm:"type:text;not null" json:"shipping_address"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

func (Order) TableName() string {
	return "orders"
}
