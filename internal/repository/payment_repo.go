package repository

import (
	"context"

	"panpos/internal/model"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	ListByClient(ctx context.Context, clientID string) ([]model.Payment, error)
	IDsBatch(ctx context.Context, limit int) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) ListByClient(ctx context.Context, clientID string) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).Where("client_id = ?", clientID).Order("date desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) IDsBatch(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := GetDB(ctx, r.db).Model(&model.Payment{}).Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

func (r *paymentRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.Payment{}).Error
}
