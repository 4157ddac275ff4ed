package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB           *gorm.DB // 直接访问数据库
	Catalog      CatalogRepository
	Order        OrderRepository
	Conversation ConversationRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:           db,
		Catalog:      NewCatalogRepository(db),
		Order:        NewOrderRepository(db),
		Conversation: NewConversationRepository(db),
	}
}

// notFoundToNil 把 gorm 的记录不存在转换为 (nil, nil)
func notFoundToNil[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
