package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ashwinyue/shop-ai/internal/model"
)

// orderRepository 订单数据访问
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// GetByID 获取订单
func (r *orderRepository) GetByID(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	return notFoundToNil(&o, err)
}

// ListForUser 列出用户订单，新订单在前
func (r *orderRepository) ListForUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}
