package repository

import (
	"context"

	"panpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuspendedSaleRepository mirrors parked carts to the backend. The local
// store remains the source of truth for these; the remote copy is
// opportunistic.
type SuspendedSaleRepository interface {
	Upsert(ctx context.Context, sale *model.SuspendedSale) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.SuspendedSale, error)
	IDsBatch(ctx context.Context, limit int) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type suspendedSaleRepository struct {
	db *gorm.DB
}

func NewSuspendedSaleRepository(db *gorm.DB) SuspendedSaleRepository {
	return &suspendedSaleRepository{db: db}
}

func (r *suspendedSaleRepository) Upsert(ctx context.Context, sale *model.SuspendedSale) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "items", "client_name", "note"}),
	}).Create(sale).Error
}

func (r *suspendedSaleRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.SuspendedSale{}).Error
}

func (r *suspendedSaleRepository) List(ctx context.Context) ([]model.SuspendedSale, error) {
	var sales []model.SuspendedSale
	if err := GetDB(ctx, r.db).Order("date").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *suspendedSaleRepository) IDsBatch(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := GetDB(ctx, r.db).Model(&model.SuspendedSale{}).Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

func (r *suspendedSaleRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.SuspendedSale{}).Error
}
