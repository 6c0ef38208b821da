package offline

import (
	"context"
	"encoding/json"
	"testing"

	"panpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, true)
	ctx := context.Background()

	// put some history behind the snapshot
	_, err := f.CreateDispatchSale(ctx, "cli_007", model.SaleItems{
		item("1", "Pan Francés", 5, "1.00"),
	}, "u1")
	require.NoError(t, err)

	backup, err := f.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, backup.Products, 2)
	require.Len(t, backup.Clients, 1)
	require.Len(t, backup.Sales, 1)
	assert.False(t, backup.BackupDate.IsZero())

	data, err := json.Marshal(backup)
	require.NoError(t, err)

	// wreck the live data, then restore everything
	require.NoError(t, f.Reset(ctx))
	gw.seedProduct("1", "Pan Francés", 0, "1.00")
	require.True(t, gw.clientDebt("cli_007").IsZero())

	require.NoError(t, f.Restore(ctx, data, RestoreScope{Sales: true, Settings: true}))

	assert.Equal(t, 595, gw.productStock("1"))
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("62.00")), "debt = %s", gw.clientDebt("cli_007"))
	assert.Equal(t, 1, gw.saleCount())
	assert.Contains(t, gw.auditActions(), model.ActionRestore)
}

func TestRestoreScopeSkipsSales(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, true)
	ctx := context.Background()

	_, err := f.CreateDispatchSale(ctx, "cli_007", model.SaleItems{
		item("1", "Pan Francés", 5, "1.00"),
	}, "u1")
	require.NoError(t, err)

	backup, err := f.Dump(ctx)
	require.NoError(t, err)
	data, err := json.Marshal(backup)
	require.NoError(t, err)

	require.NoError(t, f.Reset(ctx))
	require.NoError(t, f.Restore(ctx, data, RestoreScope{}))

	// products and clients always come back; sales stay gone
	assert.Equal(t, 595, gw.productStock("1"))
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("62.00")))
	assert.Equal(t, 0, gw.saleCount())
}

func TestDumpWorksOfflineFromCache(t *testing.T) {
	f, _, _, _ := newTestFacade(t, false)

	backup, err := f.Dump(context.Background())
	require.NoError(t, err)
	assert.Len(t, backup.Products, 2)
	assert.Len(t, backup.Clients, 1)
}

func TestRestoreRequiresConnection(t *testing.T) {
	f, _, _, _ := newTestFacade(t, false)

	err := f.Restore(context.Background(), []byte(`{"products":[],"clients":[]}`), RestoreScope{})
	assert.ErrorIs(t, err, ErrOffline)
}

func TestRestoreRejectsInvalidPayloads(t *testing.T) {
	f, _, _, _ := newTestFacade(t, true)
	ctx := context.Background()

	assert.ErrorIs(t, f.Restore(ctx, []byte(`not json`), RestoreScope{}), ErrInvalidBackup)
	assert.ErrorIs(t, f.Restore(ctx, []byte(`{"clients":[]}`), RestoreScope{}), ErrInvalidBackup)
	assert.ErrorIs(t, f.Restore(ctx, []byte(`{"products":[]}`), RestoreScope{}), ErrInvalidBackup)
}
