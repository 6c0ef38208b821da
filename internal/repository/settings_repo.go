package repository

import (
	"context"

	"panpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingsRowID pins the singleton settings row
const settingsRowID = 1

type SettingsRepository interface {
	Get(ctx context.Context) (*model.AppSettings, error)
	Save(ctx context.Context, settings *model.AppSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*model.AppSettings, error) {
	var settings model.AppSettings
	if err := GetDB(ctx, r.db).First(&settings, "id = ?", settingsRowID).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *model.AppSettings) error {
	settings.ID = settingsRowID
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"exchange_rate", "business_name", "rif", "address", "phone"}),
	}).Create(settings).Error
}
