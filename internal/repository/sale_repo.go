package repository

import (
	"context"

	"panpos/internal/model"

	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	Save(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id string) (*model.Sale, error)
	List(ctx context.Context) ([]model.Sale, error)
	Delete(ctx context.Context, id string) error
	// IDsBatch returns up to limit sale ids, used by the batched reset
	IDsBatch(ctx context.Context, limit int) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Create(sale).Error
}

func (r *saleRepository) Save(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Save(sale).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id string) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context) ([]model.Sale, error) {
	var sales []model.Sale
	if err := GetDB(ctx, r.db).Order("date desc").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) IDsBatch(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := GetDB(ctx, r.db).Model(&model.Sale{}).Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

func (r *saleRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.Sale{}).Error
}
