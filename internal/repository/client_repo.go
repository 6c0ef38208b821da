package repository

import (
	"context"

	"panpos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClientRepository interface {
	Upsert(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, id string) (*model.Client, error)
	List(ctx context.Context) ([]model.Client, error)
	// AdjustDebt applies delta atomically with a floor of zero and returns
	// the resulting balance. A negative delta is a payment, a positive one
	// a dispatch sale.
	AdjustDebt(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
	ResetAllDebt(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Upsert(ctx context.Context, client *model.Client) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "business_name", "address", "credit_limit", "updated_at"}),
	}).Create(client).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id string) (*model.Client, error) {
	var client model.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	if err := GetDB(ctx, r.db).Order("name").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) AdjustDebt(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var debt decimal.Decimal
	res := GetDB(ctx, r.db).
		Raw("UPDATE clients SET debt = GREATEST(debt + ?, 0), updated_at = NOW() WHERE id = ? RETURNING debt", delta, id).
		Scan(&debt)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return debt, nil
}

func (r *clientRepository) ResetAllDebt(ctx context.Context) error {
	return GetDB(ctx, r.db).Model(&model.Client{}).
		Where("debt <> 0").
		Update("debt", decimal.Zero).Error
}

func (r *clientRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Client{}).Count(&total).Error
	return total, err
}
