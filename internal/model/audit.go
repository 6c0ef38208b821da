package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionSaleRetail    = "SALE_RETAIL"
	ActionSaleDispatch  = "SALE_DISPATCH"
	ActionPayment       = "REGISTER_PAYMENT"
	ActionUpdateClient  = "UPDATE_CLIENT"
	ActionUpdateProduct = "UPDATE_PRODUCT"
	ActionDeleteProduct = "DELETE_PRODUCT"
	ActionUpdateSale    = "UPDATE_SALE"
	ActionDeleteSale    = "DELETE_SALE"
	ActionSaveSettings  = "SAVE_SETTINGS"
	ActionCreateExpense = "CREATE_EXPENSE"
	ActionDeleteExpense = "DELETE_EXPENSE"
	ActionRestore       = "RESTORE_BACKUP"
	ActionReset         = "RESET_ALL"
	ActionReplay        = "REPLAY_OFFLINE_QUEUE"
)

// AuditLog tracks who did what and when. Writes are best-effort: a failed
// or skipped audit write never fails the primary operation.
type AuditLog struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Date    time.Time `gorm:"not null;index" json:"date"`
	Action  string    `gorm:"type:varchar(50);not null;index" json:"action"`
	Details string    `gorm:"type:text" json:"details"`
	User    string    `gorm:"type:varchar(100)" json:"user"`
}
