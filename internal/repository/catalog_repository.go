package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ashwinyue/shop-ai/internal/model"
)

// catalogRepository 商品目录数据访问
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建商品仓库
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// GetByID 获取商品（不区分是否上架）
func (r *catalogRepository) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return notFoundToNil(&p, err)
}

// GetByIDs 批量获取商品，按 ids 的顺序返回，缺失的跳过
func (r *catalogRepository) GetByIDs(ctx context.Context, ids []uint) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*model.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}
	products := make([]*model.Product, 0, len(rows))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

// ListActive 分页列出上架商品，category 为空时不过滤
func (r *catalogRepository) ListActive(ctx context.Context, offset, limit int, category string) ([]*model.Product, error) {
	var products []*model.Product
	query := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Find(&products).Error
	return products, err
}

// CountActive 上架商品数量
func (r *catalogRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

// Upsert 按主键插入或更新商品
func (r *catalogRepository) Upsert(ctx context.Context, products []*model.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&products).Error
}
