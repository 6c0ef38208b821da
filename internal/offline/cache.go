package offline

import (
	"panpos/internal/localstore"
	"panpos/internal/model"

	"github.com/shopspring/decimal"
)

// Optimistic mutations against the cached snapshots. These mirror exactly
// what the gateway will do remotely, so reads during the same offline
// session already reflect the pending change.

func applySaleToCache(tx *localstore.Tx, sale *model.Sale) error {
	var products []model.Product
	if _, err := tx.Get(localstore.KeyCachedProducts, &products); err != nil {
		return err
	}
	for _, item := range sale.Items {
		for i := range products {
			if products[i].ID == item.ProductID {
				products[i].Stock -= item.Quantity
				break
			}
		}
	}
	if err := tx.Set(localstore.KeyCachedProducts, products); err != nil {
		return err
	}

	if sale.Type == model.SaleTypeDispatch && sale.ClientID != "" {
		if err := adjustCachedDebt(tx, sale.ClientID, sale.TotalAmount); err != nil {
			return err
		}
	}

	var sales []model.Sale
	if _, err := tx.Get(localstore.KeyCachedSales, &sales); err != nil {
		return err
	}
	// newest first, matching the remote read order
	sales = append([]model.Sale{*sale}, sales...)
	return tx.Set(localstore.KeyCachedSales, sales)
}

// adjustCachedDebt adds delta to the cached debt, clamped at zero like the
// remote atomic update
func adjustCachedDebt(tx *localstore.Tx, clientID string, delta decimal.Decimal) error {
	var clients []model.Client
	if _, err := tx.Get(localstore.KeyCachedClients, &clients); err != nil {
		return err
	}
	for i := range clients {
		if clients[i].ID == clientID {
			debt := clients[i].Debt.Add(delta)
			if debt.IsNegative() {
				debt = decimal.Zero
			}
			clients[i].Debt = debt
			break
		}
	}
	return tx.Set(localstore.KeyCachedClients, clients)
}

func upsertClientInCache(tx *localstore.Tx, client *model.Client) error {
	var clients []model.Client
	if _, err := tx.Get(localstore.KeyCachedClients, &clients); err != nil {
		return err
	}
	for i := range clients {
		if clients[i].ID == client.ID {
			// Debt stays under the ledger's control: client edits never
			// overwrite the cached balance.
			client.Debt = clients[i].Debt
			clients[i] = *client
			return tx.Set(localstore.KeyCachedClients, clients)
		}
	}
	clients = append(clients, *client)
	return tx.Set(localstore.KeyCachedClients, clients)
}

func cachedClientByID(tx *localstore.Tx, clientID string) (*model.Client, bool, error) {
	var clients []model.Client
	if _, err := tx.Get(localstore.KeyCachedClients, &clients); err != nil {
		return nil, false, err
	}
	for i := range clients {
		if clients[i].ID == clientID {
			return &clients[i], true, nil
		}
	}
	return nil, false, nil
}
