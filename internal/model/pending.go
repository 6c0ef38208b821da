package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Pending action types. Only these operations are deferral-capable: they can
// be applied optimistically to the local cache and replayed later. Everything
// else refuses to run while offline.
const (
	PendingSaleRetail   = "SALE_RETAIL"
	PendingSaleDispatch = "SALE_DISPATCH"
	PendingPayment      = "PAYMENT"
	PendingUpdateClient = "UPDATE_CLIENT"
)

// PendingAction is one deferred operation in the durable offline queue.
// The queue is strictly FIFO: later payments and sales assume earlier
// debt/stock adjustments already landed remotely. The ID doubles as the
// idempotency key the gateway dedupes replays by.
type PendingAction struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Attempts  int             `json:"attempts"`
}

// SalePayload carries a deferred retail or dispatch sale. The sale ID is
// generated at enqueue time so the optimistic cache entry and the eventual
// remote row share one identity.
type SalePayload struct {
	SaleID   string    `json:"saleId"`
	ClientID string    `json:"clientId,omitempty"`
	Items    SaleItems `json:"items"`
	SellerID string    `json:"sellerId"`
	Date     time.Time `json:"date"`
}

// PaymentPayload carries a deferred client payment
type PaymentPayload struct {
	PaymentID string          `json:"paymentId"`
	ClientID  string          `json:"clientId"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	Date      time.Time       `json:"date"`
}

// AppliedAction marks a pending action the gateway already executed.
// Inserted in the same transaction as the compound write, so a replay that
// lost its success response is detected by the primary-key conflict.
type AppliedAction struct {
	ID        string    `gorm:"type:varchar(40);primaryKey" json:"id"`
	AppliedAt time.Time `gorm:"not null" json:"appliedAt"`
}
