package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"panpos/internal/gateway"
	"panpos/internal/model"

	"github.com/shopspring/decimal"
)

var errNetwork = errors.New("connection refused")

// fakeGateway is an in-memory stand-in for the remote backend. It mirrors the
// transactional semantics the real gateway guarantees: atomic stock/debt
// adjustments with the zero floor, and action-id deduplication.
type fakeGateway struct {
	mu sync.Mutex

	products  map[string]model.Product
	clients   map[string]model.Client
	sales     map[string]model.Sale
	payments  []model.Payment
	settings  model.AppSettings
	suspended map[string]model.SuspendedSale
	expenses  []model.Expense
	audit     []model.AuditLog
	applied   map[string]bool

	// failAll makes every call fail like a dead connection; failPayments
	// limits that to RegisterPayment so replay passes can make partial
	// progress.
	failAll      bool
	failPayments bool

	// callLog records mutation order for FIFO assertions
	callLog []string

	// collideSales forces the next N CreateSale calls to report a code
	// collision
	collideSales int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		products:  make(map[string]model.Product),
		clients:   make(map[string]model.Client),
		sales:     make(map[string]model.Sale),
		suspended: make(map[string]model.SuspendedSale),
		applied:   make(map[string]bool),
	}
}

func (g *fakeGateway) seedProduct(id, name string, stock int, price string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := decimal.RequireFromString(price)
	g.products[id] = model.Product{ID: id, Name: name, Stock: stock, PriceRetail: p, PriceWholesale: p}
}

func (g *fakeGateway) seedClient(id, name, debt string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[id] = model.Client{ID: id, Name: name, Debt: decimal.RequireFromString(debt)}
}

func (g *fakeGateway) productStock(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.products[id].Stock
}

func (g *fakeGateway) clientDebt(id string) decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clients[id].Debt
}

func (g *fakeGateway) paymentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.payments)
}

func (g *fakeGateway) saleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sales)
}

func (g *fakeGateway) auditActions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	actions := make([]string, 0, len(g.audit))
	for _, entry := range g.audit {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (g *fakeGateway) setFailAll(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAll = fail
}

func (g *fakeGateway) setFailPayments(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failPayments = fail
}

func (g *fakeGateway) markApplied(actionID string) error {
	if actionID == "" {
		return nil
	}
	if g.applied[actionID] {
		return gateway.ErrAlreadyApplied
	}
	g.applied[actionID] = true
	return nil
}

func (g *fakeGateway) Ping(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	return nil
}

func (g *fakeGateway) GetProducts(ctx context.Context) ([]model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	out := make([]model.Product, 0, len(g.products))
	for _, p := range g.products {
		out = append(out, p)
	}
	return out, nil
}

func (g *fakeGateway) GetClients(ctx context.Context) ([]model.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	out := make([]model.Client, 0, len(g.clients))
	for _, c := range g.clients {
		out = append(out, c)
	}
	return out, nil
}

func (g *fakeGateway) GetSales(ctx context.Context) ([]model.Sale, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	out := make([]model.Sale, 0, len(g.sales))
	for _, s := range g.sales {
		out = append(out, s)
	}
	return out, nil
}

func (g *fakeGateway) GetSettings(ctx context.Context) (*model.AppSettings, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	settings := g.settings
	return &settings, nil
}

func (g *fakeGateway) UpsertProduct(ctx context.Context, product *model.Product) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.products[product.ID] = *product
	return nil
}

func (g *fakeGateway) DeleteProduct(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	delete(g.products, id)
	return nil
}

func (g *fakeGateway) UpsertClient(ctx context.Context, client *model.Client) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	// Debt is ledger-controlled, client edits never overwrite it
	if existing, ok := g.clients[client.ID]; ok {
		client.Debt = existing.Debt
	}
	g.clients[client.ID] = *client
	return nil
}

func (g *fakeGateway) CreateSale(ctx context.Context, actionID string, sale *model.Sale) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	if g.collideSales > 0 {
		g.collideSales--
		return gateway.ErrCodeCollision
	}
	if _, exists := g.sales[sale.ID]; exists {
		return gateway.ErrCodeCollision
	}
	if err := g.markApplied(actionID); err != nil {
		return err
	}
	if sale.Type == model.SaleTypeDispatch {
		client, ok := g.clients[sale.ClientID]
		if !ok {
			return gateway.ErrClientNotFound
		}
		if sale.ClientName == "" {
			sale.ClientName = client.Name
		}
	}
	for _, item := range sale.Items {
		product, ok := g.products[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: %s", gateway.ErrProductNotFound, item.ProductID)
		}
		product.Stock -= item.Quantity
		g.products[item.ProductID] = product
	}
	if sale.Type == model.SaleTypeDispatch {
		client := g.clients[sale.ClientID]
		client.Debt = client.Debt.Add(sale.TotalAmount)
		g.clients[sale.ClientID] = client
	}
	g.sales[sale.ID] = *sale
	g.callLog = append(g.callLog, "sale:"+sale.ID)
	return nil
}

func (g *fakeGateway) UpdateSale(ctx context.Context, sale *model.Sale) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	old, ok := g.sales[sale.ID]
	if !ok {
		return gateway.ErrSaleNotFound
	}
	if sale.Type == model.SaleTypeDispatch && sale.ClientID != "" {
		client := g.clients[sale.ClientID]
		client.Debt = clampZero(client.Debt.Add(sale.TotalAmount.Sub(old.TotalAmount)))
		g.clients[sale.ClientID] = client
	}
	sale.Date = old.Date
	g.sales[sale.ID] = *sale
	return nil
}

func (g *fakeGateway) DeleteSale(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	sale, ok := g.sales[id]
	if !ok {
		return gateway.ErrSaleNotFound
	}
	for _, item := range sale.Items {
		product, ok := g.products[item.ProductID]
		if !ok {
			continue
		}
		product.Stock += item.Quantity
		g.products[item.ProductID] = product
	}
	if sale.Type == model.SaleTypeDispatch && sale.ClientID != "" {
		if client, ok := g.clients[sale.ClientID]; ok {
			client.Debt = clampZero(client.Debt.Sub(sale.TotalAmount))
			g.clients[sale.ClientID] = client
		}
	}
	delete(g.sales, id)
	return nil
}

func (g *fakeGateway) RegisterPayment(ctx context.Context, actionID string, payment *model.Payment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll || g.failPayments {
		return errNetwork
	}
	if err := g.markApplied(actionID); err != nil {
		return err
	}
	client, ok := g.clients[payment.ClientID]
	if !ok {
		return gateway.ErrClientNotFound
	}
	g.payments = append(g.payments, *payment)
	client.Debt = clampZero(client.Debt.Sub(payment.Amount))
	g.clients[payment.ClientID] = client
	g.callLog = append(g.callLog, "payment:"+payment.ID)
	return nil
}

func (g *fakeGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.callLog...)
}

func (g *fakeGateway) ListPayments(ctx context.Context, clientID string) ([]model.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	var out []model.Payment
	for _, p := range g.payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *fakeGateway) SaveSettings(ctx context.Context, settings *model.AppSettings) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.settings = *settings
	return nil
}

func (g *fakeGateway) GetSuspendedSales(ctx context.Context) ([]model.SuspendedSale, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, errNetwork
	}
	out := make([]model.SuspendedSale, 0, len(g.suspended))
	for _, s := range g.suspended {
		out = append(out, s)
	}
	return out, nil
}

func (g *fakeGateway) UpsertSuspendedSale(ctx context.Context, sale *model.SuspendedSale) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.suspended[sale.ID] = *sale
	return nil
}

func (g *fakeGateway) DeleteSuspendedSale(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	delete(g.suspended, id)
	return nil
}

func (g *fakeGateway) CreateExpense(ctx context.Context, expense *model.Expense) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.expenses = append(g.expenses, *expense)
	return nil
}

func (g *fakeGateway) DeleteExpense(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	kept := g.expenses[:0]
	for _, e := range g.expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	g.expenses = kept
	return nil
}

func (g *fakeGateway) ListExpenses(ctx context.Context, page, limit int) ([]model.Expense, int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return nil, 0, errNetwork
	}
	return append([]model.Expense(nil), g.expenses...), int64(len(g.expenses)), nil
}

func (g *fakeGateway) AppendAudit(ctx context.Context, entry *model.AuditLog) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.audit = append(g.audit, *entry)
	return nil
}

func (g *fakeGateway) RestoreProducts(ctx context.Context, products []model.Product) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	for _, p := range products {
		g.products[p.ID] = p
	}
	return nil
}

func (g *fakeGateway) RestoreClients(ctx context.Context, clients []model.Client) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	for _, c := range clients {
		g.clients[c.ID] = c
	}
	return nil
}

func (g *fakeGateway) RestoreSales(ctx context.Context, sales []model.Sale) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	for _, s := range sales {
		g.sales[s.ID] = s
	}
	return nil
}

func (g *fakeGateway) ResetAll(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAll {
		return errNetwork
	}
	g.sales = make(map[string]model.Sale)
	g.suspended = make(map[string]model.SuspendedSale)
	g.payments = nil
	for id, client := range g.clients {
		client.Debt = decimal.Zero
		g.clients[id] = client
	}
	return nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
