package database

import (
	"panpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM. The automatic
// ping is disabled so the server can come up with the backend unreachable and
// work from the local cache until connectivity returns.
// TranslateError is required: duplicate-key violations must surface as
// gorm.ErrDuplicatedKey so replayed actions can be recognized as already
// applied.
func NewConnection(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
}

// Migrate creates or updates the schema. Called once the backend is
// reachable; safe to call repeatedly.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Client{},
		&model.Sale{},
		&model.Payment{},
		&model.AppSettings{},
		&model.SuspendedSale{},
		&model.Expense{},
		&model.StockMovement{},
		&model.AuditLog{},
		&model.AppliedAction{},
	)
}
