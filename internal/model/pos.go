package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sale type constants
const (
	SaleTypePOS      = "pos"      // cash sale settled at the counter
	SaleTypeDispatch = "dispatch" // credit sale, increases client debt
)

// Product represents an item in the bakery catalog
type Product struct {
	ID             string          `gorm:"type:varchar(10);primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Category       string          `gorm:"type:varchar(100);index" json:"category"`
	Cost           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost"`
	PriceRetail    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"priceRetail"`
	PriceWholesale decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"priceWholesale"`
	Stock          int             `gorm:"type:int;default:0;not null" json:"stock"`
	Image          string          `gorm:"type:text" json:"image,omitempty"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

// Client represents a wholesale customer on the distribution route.
// Debt is only ever mutated through atomic adjustments and is clamped at 0.
type Client struct {
	ID           string          `gorm:"type:varchar(10);primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	BusinessName string          `gorm:"type:varchar(255)" json:"businessName"`
	Address      string          `gorm:"type:varchar(255)" json:"address"`
	CreditLimit  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"creditLimit"`
	Debt         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"debt"`
	CreatedAt    time.Time       `json:"-"`
	UpdatedAt    time.Time       `json:"-"`
}

// SaleItem is a line item inside a sale. ProductName and UnitPrice are
// snapshots taken at sale time so later product edits do not rewrite history.
type SaleItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleItems is stored as a single jsonb column on the sale row
type SaleItems []SaleItem

func (s SaleItems) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SaleItems) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return errors.New("unsupported column type for sale items")
}

// Total sums the line subtotals
func (s SaleItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Sale is immutable once created except through the explicit admin
// edit/delete operations, which also reverse stock and debt.
type Sale struct {
	ID          string          `gorm:"type:varchar(10);primaryKey" json:"id"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Type        string          `gorm:"type:varchar(10);not null;index" json:"type"`
	Items       SaleItems       `gorm:"type:jsonb;not null" json:"items"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	ClientID    string          `gorm:"type:varchar(10);index" json:"clientId,omitempty"`
	ClientName  string          `gorm:"type:varchar(255)" json:"clientName,omitempty"`
	SellerID    string          `gorm:"type:varchar(50)" json:"sellerId"`
}

// Payment is an append-only debt reduction (abono) against a client
type Payment struct {
	ID       string          `gorm:"type:varchar(10);primaryKey" json:"id"`
	ClientID string          `gorm:"type:varchar(10);not null;index" json:"clientId"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Date     time.Time       `gorm:"not null;index" json:"date"`
	Note     string          `gorm:"type:varchar(255)" json:"note,omitempty"`
}

// AppSettings is a singleton row (id=1)
type AppSettings struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"exchangeRate"`
	BusinessName string          `gorm:"type:varchar(255)" json:"businessName"`
	RIF          string          `gorm:"type:varchar(50);column:rif" json:"rif"`
	Address      string          `gorm:"type:varchar(255)" json:"address"`
	Phone        string          `gorm:"type:varchar(50)" json:"phone"`
}

func (AppSettings) TableName() string {
	return "settings"
}

// SuspendedSale is a parked cart. It lives in the local store first and is
// only mirrored to the backend opportunistically.
type SuspendedSale struct {
	ID         string    `gorm:"type:varchar(10);primaryKey" json:"id"`
	Date       time.Time `gorm:"not null" json:"date"`
	Items      SaleItems `gorm:"type:jsonb;not null" json:"items"`
	ClientName string    `gorm:"type:varchar(255)" json:"clientName,omitempty"`
	Note       string    `gorm:"type:varchar(255)" json:"note,omitempty"`
}

func (SuspendedSale) TableName() string {
	return "suspended_sales"
}

// Expense records a cash outflow (raw materials, services, payroll)
type Expense struct {
	ID            string          `gorm:"type:varchar(10);primaryKey" json:"id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Category      string          `gorm:"type:varchar(100);index" json:"category"`
	Description   string          `gorm:"type:varchar(255)" json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(20)" json:"paymentMethod"`
}

// StockMovement direction constants
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement is an append-only stock ledger entry written in the same
// transaction as the sale that caused it
type StockMovement struct {
	ID              string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       string    `gorm:"type:varchar(10);not null;index" json:"productId"`
	SaleID          *string   `gorm:"type:varchar(10);index" json:"saleId,omitempty"`
	Type            string    `gorm:"type:varchar(10);not null" json:"type"`
	QuantityChanged int       `gorm:"type:int;not null" json:"quantityChanged"`
	StockAfter      int       `gorm:"type:int;not null" json:"stockAfter"`
	CreatedAt       time.Time `json:"createdAt"`
}
