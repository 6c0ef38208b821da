package repository

import (
	"context"

	"panpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Upsert(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	// AdjustStock applies delta atomically in SQL and returns the resulting
	// stock level. No read-modify-write, so concurrent sales cannot lose
	// updates.
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
	Count(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Upsert(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "cost", "price_retail", "price_wholesale", "stock", "image", "updated_at"}),
	}).Create(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Order("category, name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	var stock int
	res := GetDB(ctx, r.db).
		Raw("UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE id = ? RETURNING stock", delta, id).
		Scan(&stock)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return stock, nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Count(&total).Error
	return total, err
}
