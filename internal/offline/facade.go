// Package offline implements the synchronization facade: the single entry
// point for all entity operations. Online calls go straight to the remote
// gateway with a write-through cache; offline calls either apply an
// optimistic local mutation plus a durable queue entry (sales, payments,
// client edits) or are refused outright (everything that is too risky to
// replay blindly).
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"panpos/internal/connectivity"
	"panpos/internal/gateway"
	"panpos/internal/localstore"
	"panpos/internal/model"
	"panpos/pkg/code"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrOffline is returned by operations that must not run without
	// connectivity (destructive or multi-table edits that cannot be safely
	// replayed).
	ErrOffline = errors.New("this action requires an internet connection")

	ErrEmptySale       = errors.New("sale must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrInvalidAmount   = errors.New("payment amount must be positive")
)

// maxCodeRetries bounds fresh-code retries when a generated AAA-AAA code
// collides remotely
const maxCodeRetries = 3

// Config tunes the facade. Zero values fall back to sane defaults.
type Config struct {
	// GatewayTimeout bounds every remote call so a dead connection cannot
	// hang a replay pass indefinitely.
	GatewayTimeout time.Duration
	// MaxReplayAttempts is the dead-letter threshold per pending action
	MaxReplayAttempts int
	// User names the operator in audit entries
	User string
}

func (c *Config) withDefaults() {
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 10 * time.Second
	}
	if c.MaxReplayAttempts <= 0 {
		c.MaxReplayAttempts = 5
	}
	if c.User == "" {
		c.User = "operator"
	}
}

// Facade mediates between the UI, the durable local store and the remote
// gateway. Safe for concurrent use.
type Facade struct {
	store  *localstore.Store
	gw     gateway.Gateway
	conn   connectivity.Provider
	events EventSink
	cfg    Config

	locks    *keyedMutex
	queueMu  sync.Mutex // serializes queue reads-then-writes
	replayMu sync.Mutex // single-flight guard, see Replay
}

// New wires the facade and registers the reconnect callback that drains the
// pending queue.
func New(store *localstore.Store, gw gateway.Gateway, conn connectivity.Provider, events EventSink, cfg Config) *Facade {
	cfg.withDefaults()
	if events == nil {
		events = nopSink{}
	}
	f := &Facade{
		store:  store,
		gw:     gw,
		conn:   conn,
		events: events,
		cfg:    cfg,
		locks:  newKeyedMutex(),
	}

	conn.Subscribe(func(online bool) {
		f.events.Publish(EventConnectivity, map[string]interface{}{"online": online})
		if online {
			go func() {
				if _, err := f.Replay(context.Background()); err != nil {
					log.Printf("Replay after reconnect failed: %v", err)
				}
			}()
		}
	})
	return f
}

func (f *Facade) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, f.cfg.GatewayTimeout)
}

// isDomainError separates validation failures (never queued, retrying would
// fail again) from connectivity-class failures (deferral-capable operations
// convert these into queued actions).
func isDomainError(err error) bool {
	return errors.Is(err, gateway.ErrClientNotFound) ||
		errors.Is(err, gateway.ErrProductNotFound) ||
		errors.Is(err, gateway.ErrSaleNotFound)
}

// --- Reads: remote-first with write-through cache, cache fallback, never a
// connectivity error ---

func (f *Facade) GetProducts(ctx context.Context) ([]model.Product, error) {
	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		products, err := f.gw.GetProducts(gctx)
		cancel()
		if err == nil {
			f.setCache(localstore.KeyCachedProducts, products)
			return products, nil
		}
		log.Printf("Remote products read failed, serving cache: %v", err)
	}
	var products []model.Product
	if _, err := f.store.Get(localstore.KeyCachedProducts, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

func (f *Facade) GetClients(ctx context.Context) ([]model.Client, error) {
	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		clients, err := f.gw.GetClients(gctx)
		cancel()
		if err == nil {
			f.setCache(localstore.KeyCachedClients, clients)
			return clients, nil
		}
		log.Printf("Remote clients read failed, serving cache: %v", err)
	}
	var clients []model.Client
	if _, err := f.store.Get(localstore.KeyCachedClients, &clients); err != nil {
		return nil, err
	}
	if clients == nil {
		clients = []model.Client{}
	}
	return clients, nil
}

func (f *Facade) GetSales(ctx context.Context) ([]model.Sale, error) {
	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		sales, err := f.gw.GetSales(gctx)
		cancel()
		if err == nil {
			f.setCache(localstore.KeyCachedSales, sales)
			return sales, nil
		}
		log.Printf("Remote sales read failed, serving cache: %v", err)
	}
	var sales []model.Sale
	if _, err := f.store.Get(localstore.KeyCachedSales, &sales); err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	return sales, nil
}

func (f *Facade) GetSettings(ctx context.Context) (*model.AppSettings, error) {
	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		settings, err := f.gw.GetSettings(gctx)
		cancel()
		if err == nil {
			f.setCache(localstore.KeyCachedSettings, settings)
			return settings, nil
		}
		log.Printf("Remote settings read failed, serving cache: %v", err)
	}
	settings := &model.AppSettings{}
	if _, err := f.store.Get(localstore.KeyCachedSettings, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// --- Deferral-capable mutations ---

// CreateRetailSale records a cash counter sale: stock goes down, no debt.
func (f *Facade) CreateRetailSale(ctx context.Context, items model.SaleItems, sellerID string) (*model.Sale, error) {
	return f.createSale(ctx, model.SaleTypePOS, "", items, sellerID)
}

// CreateDispatchSale records a credit sale: stock goes down and the client's
// debt grows by the sale total.
func (f *Facade) CreateDispatchSale(ctx context.Context, clientID string, items model.SaleItems, sellerID string) (*model.Sale, error) {
	if clientID == "" {
		return nil, gateway.ErrClientNotFound
	}
	return f.createSale(ctx, model.SaleTypeDispatch, clientID, items, sellerID)
}

func (f *Facade) createSale(ctx context.Context, saleType, clientID string, items model.SaleItems, sellerID string) (*model.Sale, error) {
	if len(items) == 0 {
		return nil, ErrEmptySale
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, item.ProductID)
		}
	}

	if clientID != "" {
		unlock := f.locks.Lock("client:" + clientID)
		defer unlock()
	}

	sale := &model.Sale{
		ID:          code.New(),
		Date:        time.Now(),
		Type:        saleType,
		Items:       items,
		TotalAmount: items.Total(),
		ClientID:    clientID,
		SellerID:    sellerID,
	}
	// The action id survives a lost success response: the gateway dedupes
	// both the online attempt and any later replay by it.
	actionID := uuid.NewString()

	pendingType := model.PendingSaleRetail
	auditAction := model.ActionSaleRetail
	if saleType == model.SaleTypeDispatch {
		pendingType = model.PendingSaleDispatch
		auditAction = model.ActionSaleDispatch
	}

	if f.conn.IsOnline() {
		var err error
		for attempt := 0; attempt < maxCodeRetries; attempt++ {
			gctx, cancel := f.bound(ctx)
			err = f.gw.CreateSale(gctx, actionID, sale)
			cancel()
			if !errors.Is(err, gateway.ErrCodeCollision) {
				break
			}
			// collision rolled the whole transaction back, so a fresh
			// identity is safe
			sale.ID = code.New()
			actionID = uuid.NewString()
		}
		if err == nil {
			f.applyCache(func(tx *localstore.Tx) error { return applySaleToCache(tx, sale) })
			f.auditLog(ctx, auditAction, fmt.Sprintf("sale %s total %s", sale.ID, sale.TotalAmount))
			return sale, nil
		}
		if isDomainError(err) || errors.Is(err, gateway.ErrCodeCollision) {
			return nil, err
		}
		log.Printf("Online sale failed, deferring to offline queue: %v", err)
	}

	payload := model.SalePayload{
		SaleID:   sale.ID,
		ClientID: clientID,
		Items:    items,
		SellerID: sellerID,
		Date:     sale.Date,
	}
	action, err := f.pendingAction(actionID, pendingType, payload)
	if err != nil {
		return nil, err
	}

	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	err = f.store.Update(func(tx *localstore.Tx) error {
		if saleType == model.SaleTypeDispatch {
			client, ok, err := cachedClientByID(tx, clientID)
			if err != nil {
				return err
			}
			if !ok {
				return gateway.ErrClientNotFound
			}
			sale.ClientName = client.Name
		}
		if err := applySaleToCache(tx, sale); err != nil {
			return err
		}
		return appendQueue(tx, action)
	})
	if err != nil {
		return nil, err
	}

	f.events.Publish(EventQueued, map[string]interface{}{"type": pendingType, "id": action.ID})
	return sale, nil
}

// RegisterPayment reduces the client's debt by amount, floored at zero, and
// appends a payment record.
func (f *Facade) RegisterPayment(ctx context.Context, clientID string, amount decimal.Decimal, note string) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	unlock := f.locks.Lock("client:" + clientID)
	defer unlock()

	payment := &model.Payment{
		ID:       code.New(),
		ClientID: clientID,
		Amount:   amount,
		Date:     time.Now(),
		Note:     note,
	}
	actionID := uuid.NewString()

	if f.conn.IsOnline() {
		var err error
		for attempt := 0; attempt < maxCodeRetries; attempt++ {
			gctx, cancel := f.bound(ctx)
			err = f.gw.RegisterPayment(gctx, actionID, payment)
			cancel()
			if !errors.Is(err, gateway.ErrCodeCollision) {
				break
			}
			payment.ID = code.New()
			actionID = uuid.NewString()
		}
		if err == nil {
			f.applyCache(func(tx *localstore.Tx) error {
				return adjustCachedDebt(tx, clientID, amount.Neg())
			})
			f.auditLog(ctx, model.ActionPayment, fmt.Sprintf("payment %s client %s amount %s", payment.ID, clientID, amount))
			return payment, nil
		}
		if isDomainError(err) || errors.Is(err, gateway.ErrCodeCollision) {
			return nil, err
		}
		log.Printf("Online payment failed, deferring to offline queue: %v", err)
	}

	payload := model.PaymentPayload{
		PaymentID: payment.ID,
		ClientID:  clientID,
		Amount:    amount,
		Note:      note,
		Date:      payment.Date,
	}
	action, err := f.pendingAction(actionID, model.PendingPayment, payload)
	if err != nil {
		return nil, err
	}

	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	err = f.store.Update(func(tx *localstore.Tx) error {
		_, ok, err := cachedClientByID(tx, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return gateway.ErrClientNotFound
		}
		if err := adjustCachedDebt(tx, clientID, amount.Neg()); err != nil {
			return err
		}
		return appendQueue(tx, action)
	})
	if err != nil {
		return nil, err
	}

	f.events.Publish(EventQueued, map[string]interface{}{"type": model.PendingPayment, "id": action.ID})
	return payment, nil
}

// UpdateClient creates or edits a client. Debt is never written through this
// path; it only moves via sales and payments.
func (f *Facade) UpdateClient(ctx context.Context, client *model.Client) error {
	if client.ID == "" {
		client.ID = code.New()
	}

	unlock := f.locks.Lock("client:" + client.ID)
	defer unlock()

	actionID := uuid.NewString()

	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		err := f.gw.UpsertClient(gctx, client)
		cancel()
		if err == nil {
			f.applyCache(func(tx *localstore.Tx) error { return upsertClientInCache(tx, client) })
			f.auditLog(ctx, model.ActionUpdateClient, fmt.Sprintf("client %s (%s)", client.ID, client.Name))
			return nil
		}
		if isDomainError(err) {
			return err
		}
		log.Printf("Online client update failed, deferring to offline queue: %v", err)
	}

	action, err := f.pendingAction(actionID, model.PendingUpdateClient, client)
	if err != nil {
		return err
	}

	f.queueMu.Lock()
	defer f.queueMu.Unlock()
	err = f.store.Update(func(tx *localstore.Tx) error {
		if err := upsertClientInCache(tx, client); err != nil {
			return err
		}
		return appendQueue(tx, action)
	})
	if err != nil {
		return err
	}

	f.events.Publish(EventQueued, map[string]interface{}{"type": model.PendingUpdateClient, "id": action.ID})
	return nil
}

// --- Online-only mutations: refused while offline ---

func (f *Facade) UpdateProduct(ctx context.Context, product *model.Product) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	if product.ID == "" {
		product.ID = code.New()
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.UpsertProduct(gctx, product); err != nil {
		return err
	}
	f.applyCache(func(tx *localstore.Tx) error {
		var products []model.Product
		if _, err := tx.Get(localstore.KeyCachedProducts, &products); err != nil {
			return err
		}
		found := false
		for i := range products {
			if products[i].ID == product.ID {
				products[i] = *product
				found = true
				break
			}
		}
		if !found {
			products = append(products, *product)
		}
		return tx.Set(localstore.KeyCachedProducts, products)
	})
	f.auditLog(ctx, model.ActionUpdateProduct, fmt.Sprintf("product %s (%s)", product.ID, product.Name))
	return nil
}

func (f *Facade) DeleteProduct(ctx context.Context, id string) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.DeleteProduct(gctx, id); err != nil {
		return err
	}
	f.applyCache(func(tx *localstore.Tx) error {
		var products []model.Product
		if _, err := tx.Get(localstore.KeyCachedProducts, &products); err != nil {
			return err
		}
		kept := products[:0]
		for _, p := range products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return tx.Set(localstore.KeyCachedProducts, kept)
	})
	f.auditLog(ctx, model.ActionDeleteProduct, "product "+id)
	return nil
}

func (f *Facade) UpdateSale(ctx context.Context, sale *model.Sale) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.UpdateSale(gctx, sale); err != nil {
		return err
	}
	f.refreshCaches(ctx)
	f.auditLog(ctx, model.ActionUpdateSale, "sale "+sale.ID)
	return nil
}

func (f *Facade) DeleteSale(ctx context.Context, id string) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.DeleteSale(gctx, id); err != nil {
		return err
	}
	f.refreshCaches(ctx)
	f.auditLog(ctx, model.ActionDeleteSale, "sale "+id)
	return nil
}

func (f *Facade) SaveSettings(ctx context.Context, settings *model.AppSettings) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.SaveSettings(gctx, settings); err != nil {
		return err
	}
	f.setCache(localstore.KeyCachedSettings, settings)
	f.auditLog(ctx, model.ActionSaveSettings, "settings updated")
	return nil
}

func (f *Facade) ListPayments(ctx context.Context, clientID string) ([]model.Payment, error) {
	if !f.conn.IsOnline() {
		return nil, ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	return f.gw.ListPayments(gctx, clientID)
}

func (f *Facade) CreateExpense(ctx context.Context, expense *model.Expense) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	if expense.ID == "" {
		expense.ID = code.New()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now()
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.CreateExpense(gctx, expense); err != nil {
		return err
	}
	f.auditLog(ctx, model.ActionCreateExpense, fmt.Sprintf("expense %s amount %s", expense.ID, expense.Amount))
	return nil
}

func (f *Facade) DeleteExpense(ctx context.Context, id string) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	if err := f.gw.DeleteExpense(gctx, id); err != nil {
		return err
	}
	f.auditLog(ctx, model.ActionDeleteExpense, "expense "+id)
	return nil
}

func (f *Facade) ListExpenses(ctx context.Context, page, limit int) ([]model.Expense, int64, error) {
	if !f.conn.IsOnline() {
		return nil, 0, ErrOffline
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	return f.gw.ListExpenses(gctx, page, limit)
}

// Reset wipes sales, suspended sales, payments and all client debt. It also
// drops the local pending queue: replaying pre-reset actions against a
// zeroed store would resurrect exactly the data the operator deleted.
func (f *Facade) Reset(ctx context.Context) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}
	if err := f.gw.ResetAll(ctx); err != nil {
		return err
	}

	f.queueMu.Lock()
	err := f.store.Update(func(tx *localstore.Tx) error {
		if err := tx.Set(localstore.KeyOfflineQueue, []model.PendingAction{}); err != nil {
			return err
		}
		if err := tx.Set(localstore.KeyDeadLetterQueue, []model.PendingAction{}); err != nil {
			return err
		}
		return tx.Set(localstore.KeySuspendedSales, []model.SuspendedSale{})
	})
	f.queueMu.Unlock()
	if err != nil {
		log.Printf("Local cleanup after reset failed: %v", err)
	}

	f.refreshCaches(ctx)
	f.auditLog(ctx, model.ActionReset, "all sales, payments and debts cleared")
	return nil
}

// --- Suspended sales: always local-first, mirrored opportunistically ---

func (f *Facade) GetSuspendedSales(ctx context.Context) ([]model.SuspendedSale, error) {
	var sales []model.SuspendedSale
	if _, err := f.store.Get(localstore.KeySuspendedSales, &sales); err != nil {
		return nil, err
	}
	if sales == nil {
		sales = []model.SuspendedSale{}
	}
	return sales, nil
}

func (f *Facade) AddSuspendedSale(ctx context.Context, sale *model.SuspendedSale) error {
	if sale.ID == "" {
		sale.ID = code.New()
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now()
	}
	err := f.store.Update(func(tx *localstore.Tx) error {
		var sales []model.SuspendedSale
		if _, err := tx.Get(localstore.KeySuspendedSales, &sales); err != nil {
			return err
		}
		sales = append(sales, *sale)
		return tx.Set(localstore.KeySuspendedSales, sales)
	})
	if err != nil {
		return err
	}

	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		defer cancel()
		if err := f.gw.UpsertSuspendedSale(gctx, sale); err != nil {
			log.Printf("Suspended sale mirror failed (ignored): %v", err)
		}
	}
	return nil
}

func (f *Facade) RemoveSuspendedSale(ctx context.Context, id string) error {
	err := f.store.Update(func(tx *localstore.Tx) error {
		var sales []model.SuspendedSale
		if _, err := tx.Get(localstore.KeySuspendedSales, &sales); err != nil {
			return err
		}
		kept := sales[:0]
		for _, s := range sales {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		return tx.Set(localstore.KeySuspendedSales, kept)
	})
	if err != nil {
		return err
	}

	if f.conn.IsOnline() {
		gctx, cancel := f.bound(ctx)
		defer cancel()
		if err := f.gw.DeleteSuspendedSale(gctx, id); err != nil {
			log.Printf("Suspended sale mirror delete failed (ignored): %v", err)
		}
	}
	return nil
}

// --- helpers ---

func (f *Facade) pendingAction(id, actionType string, payload interface{}) (model.PendingAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.PendingAction{}, fmt.Errorf("encode pending payload: %w", err)
	}
	return model.PendingAction{
		ID:        id,
		Type:      actionType,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// setCache is a best-effort write-through; a failed cache write only costs
// freshness, never correctness of the remote operation that preceded it.
func (f *Facade) setCache(key string, v interface{}) {
	if err := f.store.Set(key, v); err != nil {
		log.Printf("Cache write for %q failed: %v", key, err)
	}
}

func (f *Facade) applyCache(fn func(tx *localstore.Tx) error) {
	if err := f.store.Update(fn); err != nil {
		log.Printf("Cache update failed: %v", err)
	}
}

// refreshCaches pulls a fresh snapshot of everything cacheable. Best-effort.
func (f *Facade) refreshCaches(ctx context.Context) {
	if !f.conn.IsOnline() {
		return
	}
	if _, err := f.GetProducts(ctx); err != nil {
		log.Printf("Product cache refresh failed: %v", err)
	}
	if _, err := f.GetClients(ctx); err != nil {
		log.Printf("Client cache refresh failed: %v", err)
	}
	if _, err := f.GetSales(ctx); err != nil {
		log.Printf("Sales cache refresh failed: %v", err)
	}
	if _, err := f.GetSettings(ctx); err != nil {
		log.Printf("Settings cache refresh failed: %v", err)
	}
}

// auditLog is strictly best-effort and skipped while offline
func (f *Facade) auditLog(ctx context.Context, action, details string) {
	if !f.conn.IsOnline() {
		return
	}
	gctx, cancel := f.bound(ctx)
	defer cancel()
	entry := &model.AuditLog{
		Date:    time.Now(),
		Action:  action,
		Details: details,
		User:    f.cfg.User,
	}
	if err := f.gw.AppendAudit(gctx, entry); err != nil {
		log.Printf("Audit write failed (ignored): %v", err)
	}
}
