// Package gateway is the thin client to the hosted relational backend. One
// method per entity operation; the compound ones (sale creation touching
// stock and debt, sale deletion reversing both, payments) each run inside a
// single database transaction so a failure between steps never leaves the
// remote store partially applied.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"panpos/internal/model"
	"panpos/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProductNotFound = errors.New("product not found")
	ErrSaleNotFound    = errors.New("sale not found")
	// ErrAlreadyApplied means the pending action was executed by an earlier
	// replay whose success response was lost. Callers treat it as success.
	ErrAlreadyApplied = errors.New("action already applied")
	// ErrCodeCollision means a freshly generated entity code already exists
	// remotely (32^6 space, so rare but possible). Callers retry with a new
	// code; the transaction was rolled back.
	ErrCodeCollision = errors.New("entity code collision")
)

// resetBatchSize keeps delete-by-id-list requests bounded
const resetBatchSize = 100

// Gateway is the remote data contract the sync facade talks to. Everything
// here is a network round-trip against the backend; nothing touches the
// local store.
type Gateway interface {
	Ping(ctx context.Context) error

	GetProducts(ctx context.Context) ([]model.Product, error)
	GetClients(ctx context.Context) ([]model.Client, error)
	GetSales(ctx context.Context) ([]model.Sale, error)
	GetSettings(ctx context.Context) (*model.AppSettings, error)

	UpsertProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	UpsertClient(ctx context.Context, client *model.Client) error

	// CreateSale inserts the sale row, decrements stock per item, writes the
	// stock ledger and, for dispatch sales, increases the client's debt — in
	// one transaction. A non-empty actionID dedupes replays.
	CreateSale(ctx context.Context, actionID string, sale *model.Sale) error
	UpdateSale(ctx context.Context, sale *model.Sale) error
	DeleteSale(ctx context.Context, id string) error

	// RegisterPayment appends the payment row and reduces the client's debt
	// (floored at zero) in one transaction. A non-empty actionID dedupes
	// replays.
	RegisterPayment(ctx context.Context, actionID string, payment *model.Payment) error
	ListPayments(ctx context.Context, clientID string) ([]model.Payment, error)

	SaveSettings(ctx context.Context, settings *model.AppSettings) error

	GetSuspendedSales(ctx context.Context) ([]model.SuspendedSale, error)
	UpsertSuspendedSale(ctx context.Context, sale *model.SuspendedSale) error
	DeleteSuspendedSale(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, expense *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context, page, limit int) ([]model.Expense, int64, error)

	AppendAudit(ctx context.Context, entry *model.AuditLog) error

	// RestoreProducts and RestoreClients fully replace matching rows,
	// including stock and debt, during a backup restore. RestoreSales
	// reinstates sale rows verbatim without touching stock or debt, since
	// the restored product/client rows already carry the resulting levels.
	RestoreProducts(ctx context.Context, products []model.Product) error
	RestoreClients(ctx context.Context, clients []model.Client) error
	RestoreSales(ctx context.Context, sales []model.Sale) error

	// ResetAll deletes all sales, suspended sales and payments in bounded
	// batches and zeroes every client's debt. Idempotent and resumable.
	ResetAll(ctx context.Context) error
}

type postgresGateway struct {
	db        *gorm.DB
	products  repository.ProductRepository
	clients   repository.ClientRepository
	sales     repository.SaleRepository
	payments  repository.PaymentRepository
	settings  repository.SettingsRepository
	suspended repository.SuspendedSaleRepository
	expenses  repository.ExpenseRepository
	audit     repository.AuditRepository
	applied   repository.AppliedActionRepository
	movements repository.StockMovementRepository
	txManager repository.TransactionManager
}

// NewPostgresGateway wires the repositories behind the Gateway contract
func NewPostgresGateway(
	db *gorm.DB,
	products repository.ProductRepository,
	clients repository.ClientRepository,
	sales repository.SaleRepository,
	payments repository.PaymentRepository,
	settings repository.SettingsRepository,
	suspended repository.SuspendedSaleRepository,
	expenses repository.ExpenseRepository,
	audit repository.AuditRepository,
	applied repository.AppliedActionRepository,
	movements repository.StockMovementRepository,
	txManager repository.TransactionManager,
) Gateway {
	return &postgresGateway{
		db:        db,
		products:  products,
		clients:   clients,
		sales:     sales,
		payments:  payments,
		settings:  settings,
		suspended: suspended,
		expenses:  expenses,
		audit:     audit,
		applied:   applied,
		movements: movements,
		txManager: txManager,
	}
}

func (g *postgresGateway) Ping(ctx context.Context) error {
	var one int
	return g.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

func (g *postgresGateway) GetProducts(ctx context.Context) ([]model.Product, error) {
	return g.products.List(ctx)
}

func (g *postgresGateway) GetClients(ctx context.Context) ([]model.Client, error) {
	return g.clients.List(ctx)
}

func (g *postgresGateway) GetSales(ctx context.Context) ([]model.Sale, error) {
	return g.sales.List(ctx)
}

func (g *postgresGateway) GetSettings(ctx context.Context) (*model.AppSettings, error) {
	settings, err := g.settings.Get(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.AppSettings{}, nil
	}
	return settings, err
}

func (g *postgresGateway) UpsertProduct(ctx context.Context, product *model.Product) error {
	return g.products.Upsert(ctx, product)
}

func (g *postgresGateway) DeleteProduct(ctx context.Context, id string) error {
	return g.products.Delete(ctx, id)
}

func (g *postgresGateway) UpsertClient(ctx context.Context, client *model.Client) error {
	return g.clients.Upsert(ctx, client)
}

func (g *postgresGateway) CreateSale(ctx context.Context, actionID string, sale *model.Sale) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if actionID != "" {
			if err := g.markApplied(txCtx, actionID); err != nil {
				return err
			}
		}

		if sale.Type == model.SaleTypeDispatch {
			client, err := g.clients.FindByID(txCtx, sale.ClientID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrClientNotFound
				}
				return fmt.Errorf("lookup client: %w", err)
			}
			if sale.ClientName == "" {
				sale.ClientName = client.Name
			}
		}

		if err := g.sales.Create(txCtx, sale); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCodeCollision
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, item := range sale.Items {
			stockAfter, err := g.products.AdjustStock(txCtx, item.ProductID, -item.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
				}
				return fmt.Errorf("deduct stock for %s: %w", item.ProductID, err)
			}
			movement := &model.StockMovement{
				ProductID:       item.ProductID,
				SaleID:          &sale.ID,
				Type:            model.MovementOut,
				QuantityChanged: item.Quantity,
				StockAfter:      stockAfter,
			}
			if err := g.movements.Create(txCtx, movement); err != nil {
				return fmt.Errorf("write stock movement: %w", err)
			}
		}

		if sale.Type == model.SaleTypeDispatch {
			if _, err := g.clients.AdjustDebt(txCtx, sale.ClientID, sale.TotalAmount); err != nil {
				return fmt.Errorf("increase debt: %w", err)
			}
		}

		return nil
	})
}

func (g *postgresGateway) UpdateSale(ctx context.Context, sale *model.Sale) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		old, err := g.sales.FindByID(txCtx, sale.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return fmt.Errorf("lookup sale: %w", err)
		}

		if sale.Type == model.SaleTypeDispatch && sale.ClientID != "" {
			debtDiff := sale.TotalAmount.Sub(old.TotalAmount)
			if !debtDiff.IsZero() {
				if _, err := g.clients.AdjustDebt(txCtx, sale.ClientID, debtDiff); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrClientNotFound
					}
					return fmt.Errorf("adjust debt: %w", err)
				}
			}
		}

		// Date is immutable once created
		sale.Date = old.Date
		if err := g.sales.Save(txCtx, sale); err != nil {
			return fmt.Errorf("save sale: %w", err)
		}
		return nil
	})
}

func (g *postgresGateway) DeleteSale(ctx context.Context, id string) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := g.sales.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return fmt.Errorf("lookup sale: %w", err)
		}

		// Put the sold quantities back
		for _, item := range sale.Items {
			stockAfter, err := g.products.AdjustStock(txCtx, item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // product was deleted since the sale, nothing to revert
				}
				return fmt.Errorf("revert stock for %s: %w", item.ProductID, err)
			}
			movement := &model.StockMovement{
				ProductID:       item.ProductID,
				SaleID:          &sale.ID,
				Type:            model.MovementIn,
				QuantityChanged: item.Quantity,
				StockAfter:      stockAfter,
			}
			if err := g.movements.Create(txCtx, movement); err != nil {
				return fmt.Errorf("write stock movement: %w", err)
			}
		}

		if sale.Type == model.SaleTypeDispatch && sale.ClientID != "" {
			if _, err := g.clients.AdjustDebt(txCtx, sale.ClientID, sale.TotalAmount.Neg()); err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("revert debt: %w", err)
				}
			}
		}

		if err := g.sales.Delete(txCtx, sale.ID); err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		return nil
	})
}

func (g *postgresGateway) RegisterPayment(ctx context.Context, actionID string, payment *model.Payment) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if actionID != "" {
			if err := g.markApplied(txCtx, actionID); err != nil {
				return err
			}
		}

		if _, err := g.clients.FindByID(txCtx, payment.ClientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("lookup client: %w", err)
		}

		if err := g.payments.Create(txCtx, payment); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCodeCollision
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		if _, err := g.clients.AdjustDebt(txCtx, payment.ClientID, payment.Amount.Neg()); err != nil {
			return fmt.Errorf("reduce debt: %w", err)
		}
		return nil
	})
}

func (g *postgresGateway) ListPayments(ctx context.Context, clientID string) ([]model.Payment, error) {
	return g.payments.ListByClient(ctx, clientID)
}

func (g *postgresGateway) SaveSettings(ctx context.Context, settings *model.AppSettings) error {
	return g.settings.Save(ctx, settings)
}

func (g *postgresGateway) GetSuspendedSales(ctx context.Context) ([]model.SuspendedSale, error) {
	return g.suspended.List(ctx)
}

func (g *postgresGateway) UpsertSuspendedSale(ctx context.Context, sale *model.SuspendedSale) error {
	return g.suspended.Upsert(ctx, sale)
}

func (g *postgresGateway) DeleteSuspendedSale(ctx context.Context, id string) error {
	return g.suspended.Delete(ctx, id)
}

func (g *postgresGateway) CreateExpense(ctx context.Context, expense *model.Expense) error {
	return g.expenses.Create(ctx, expense)
}

func (g *postgresGateway) DeleteExpense(ctx context.Context, id string) error {
	return g.expenses.Delete(ctx, id)
}

func (g *postgresGateway) ListExpenses(ctx context.Context, page, limit int) ([]model.Expense, int64, error) {
	return g.expenses.List(ctx, page, limit)
}

func (g *postgresGateway) AppendAudit(ctx context.Context, entry *model.AuditLog) error {
	return g.audit.Log(ctx, entry)
}

func (g *postgresGateway) RestoreProducts(ctx context.Context, products []model.Product) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range products {
			err := repository.GetDB(txCtx, g.db).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&products[i]).Error
			if err != nil {
				return fmt.Errorf("restore product %s: %w", products[i].ID, err)
			}
		}
		return nil
	})
}

func (g *postgresGateway) RestoreClients(ctx context.Context, clients []model.Client) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range clients {
			err := repository.GetDB(txCtx, g.db).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&clients[i]).Error
			if err != nil {
				return fmt.Errorf("restore client %s: %w", clients[i].ID, err)
			}
		}
		return nil
	})
}

func (g *postgresGateway) RestoreSales(ctx context.Context, sales []model.Sale) error {
	return g.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range sales {
			err := repository.GetDB(txCtx, g.db).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&sales[i]).Error
			if err != nil {
				return fmt.Errorf("restore sale %s: %w", sales[i].ID, err)
			}
		}
		return nil
	})
}

func (g *postgresGateway) ResetAll(ctx context.Context) error {
	// Batched outside a single transaction: delete-by-id-list is naturally
	// idempotent, so an interrupted reset completes on the next invocation.
	for {
		ids, err := g.sales.IDsBatch(ctx, resetBatchSize)
		if err != nil {
			return fmt.Errorf("list sales batch: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := g.sales.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete sales batch: %w", err)
		}
	}

	for {
		ids, err := g.suspended.IDsBatch(ctx, resetBatchSize)
		if err != nil {
			return fmt.Errorf("list suspended batch: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := g.suspended.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete suspended batch: %w", err)
		}
	}

	for {
		ids, err := g.payments.IDsBatch(ctx, resetBatchSize)
		if err != nil {
			return fmt.Errorf("list payments batch: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := g.payments.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete payments batch: %w", err)
		}
	}

	if err := g.clients.ResetAllDebt(ctx); err != nil {
		return fmt.Errorf("reset client debt: %w", err)
	}
	return nil
}

func (g *postgresGateway) markApplied(ctx context.Context, actionID string) error {
	if err := g.applied.Mark(ctx, actionID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyApplied
		}
		return fmt.Errorf("mark action applied: %w", err)
	}
	return nil
}
