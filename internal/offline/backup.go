package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"panpos/internal/model"
)

// Backup is the portable dump format. Field names are part of the on-disk
// contract; existing backup files must keep restoring.
type Backup struct {
	Products       []model.Product       `json:"products"`
	Clients        []model.Client        `json:"clients"`
	Sales          []model.Sale          `json:"sales"`
	Settings       model.AppSettings     `json:"settings"`
	SuspendedSales []model.SuspendedSale `json:"suspended_sales"`
	BackupDate     time.Time             `json:"backupDate"`
}

// RestoreScope widens a restore beyond the always-restored products and
// clients
type RestoreScope struct {
	Sales    bool
	Settings bool
}

var ErrInvalidBackup = errors.New("invalid backup file")

// Dump collects a full snapshot. It goes through the facade reads, so it
// works offline from the cache — a dump taken during an outage is simply as
// fresh as the cache is.
func (f *Facade) Dump(ctx context.Context) (*Backup, error) {
	products, err := f.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := f.GetClients(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := f.GetSales(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := f.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	suspended, err := f.GetSuspendedSales(ctx)
	if err != nil {
		return nil, err
	}

	return &Backup{
		Products:       products,
		Clients:        clients,
		Sales:          sales,
		Settings:       *settings,
		SuspendedSales: suspended,
		BackupDate:     time.Now(),
	}, nil
}

// Restore upserts the backup into the remote store. Products and clients are
// always restored; sales and settings only when the scope asks for them.
// Online-only: restoring into the cache alone would be undone by the next
// write-through read.
func (f *Facade) Restore(ctx context.Context, data []byte, scope RestoreScope) error {
	if !f.conn.IsOnline() {
		return ErrOffline
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if backup.Products == nil || backup.Clients == nil {
		return fmt.Errorf("%w: missing products or clients", ErrInvalidBackup)
	}

	if err := f.gw.RestoreProducts(ctx, backup.Products); err != nil {
		return fmt.Errorf("restore products: %w", err)
	}
	if err := f.gw.RestoreClients(ctx, backup.Clients); err != nil {
		return fmt.Errorf("restore clients: %w", err)
	}

	if scope.Sales {
		if err := f.gw.RestoreSales(ctx, backup.Sales); err != nil {
			return fmt.Errorf("restore sales: %w", err)
		}
	}
	if scope.Settings {
		settings := backup.Settings
		if err := f.gw.SaveSettings(ctx, &settings); err != nil {
			return fmt.Errorf("restore settings: %w", err)
		}
	}

	f.refreshCaches(ctx)
	f.auditLog(ctx, model.ActionRestore,
		fmt.Sprintf("restored backup from %s (%d products, %d clients)",
			backup.BackupDate.Format(time.RFC3339), len(backup.Products), len(backup.Clients)))
	return nil
}
