package offline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"panpos/internal/localstore"
	"panpos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayDrainsQueueInOrder(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, false)
	ctx := context.Background()

	sale, err := f.CreateDispatchSale(ctx, "cli_007", model.SaleItems{
		item("1", "Pan Francés", 5, "1.00"),
	}, "u1")
	require.NoError(t, err)
	payment, err := f.RegisterPayment(ctx, "cli_007", dec("20.00"), "")
	require.NoError(t, err)
	require.Len(t, pendingQueue(t, f), 2)

	result, err := f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, pendingQueue(t, f))

	// strict enqueue order: the sale's debt increase lands before the payment
	assert.Equal(t, []string{"sale:" + sale.ID, "payment:" + payment.ID}, gw.calls())
	// 57 + 5 - 20
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("42.00")), "debt = %s", gw.clientDebt("cli_007"))
	assert.Equal(t, 595, gw.productStock("1"))
}

func TestReplayIsolatesPerActionFailures(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, false)
	ctx := context.Background()

	saleA, err := f.CreateRetailSale(ctx, model.SaleItems{item("1", "Pan Francés", 1, "1.00")}, "u1")
	require.NoError(t, err)
	_, err = f.RegisterPayment(ctx, "cli_007", dec("10.00"), "")
	require.NoError(t, err)
	saleC, err := f.CreateRetailSale(ctx, model.SaleItems{item("2", "Pan Canilla", 2, "1.00")}, "u1")
	require.NoError(t, err)

	gw.setFailPayments(true)
	result, err := f.Replay(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.DeadLettered)

	// both sales landed despite the failing payment between them
	assert.Equal(t, []string{"sale:" + saleA.ID, "sale:" + saleC.ID}, gw.calls())

	queue := pendingQueue(t, f)
	require.Len(t, queue, 1)
	assert.Equal(t, model.PendingPayment, queue[0].Type)
	assert.Equal(t, 1, queue[0].Attempts)

	// next pass with the backend healthy drains the leftover
	gw.setFailPayments(false)
	result, err = f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, pendingQueue(t, f))
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("47.00")))
}

func TestReplayDeadLettersAfterMaxAttempts(t *testing.T) {
	f, gw, _, sink := newTestFacade(t, false)
	f.cfg.MaxReplayAttempts = 2
	ctx := context.Background()

	_, err := f.RegisterPayment(ctx, "cli_007", dec("10.00"), "")
	require.NoError(t, err)

	gw.setFailPayments(true)
	_, err = f.Replay(ctx)
	require.NoError(t, err)
	require.Len(t, pendingQueue(t, f), 1)

	result, err := f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeadLettered)
	assert.Empty(t, pendingQueue(t, f))

	dead, err := f.DeadLetters()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, model.PendingPayment, dead[0].Type)
	assert.Equal(t, 2, dead[0].Attempts)
	assert.True(t, sink.has(EventDeadLetter))
}

func TestReplayTreatsAlreadyAppliedAsSuccess(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, false)
	ctx := context.Background()

	_, err := f.RegisterPayment(ctx, "cli_007", dec("20.00"), "")
	require.NoError(t, err)

	queue := pendingQueue(t, f)
	require.Len(t, queue, 1)

	// the action landed on an earlier pass whose success response was lost
	gw.mu.Lock()
	gw.applied[queue[0].ID] = true
	gw.mu.Unlock()

	result, err := f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, pendingQueue(t, f))

	// not applied twice: remote debt and payments untouched
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("57.00")))
	assert.Equal(t, 0, gw.paymentCount())
}

func TestReplaySingleFlight(t *testing.T) {
	f, _, _, _ := newTestFacade(t, false)

	f.replayMu.Lock()
	result, err := f.Replay(context.Background())
	f.replayMu.Unlock()

	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestReplayEmptyQueueIsNoop(t *testing.T) {
	f, gw, _, _ := newTestFacade(t, false)

	result, err := f.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Attempted)
	assert.Empty(t, gw.calls())
}

func TestReplayDeadLettersUnknownActionType(t *testing.T) {
	f, _, _, _ := newTestFacade(t, false)
	f.cfg.MaxReplayAttempts = 1

	action := model.PendingAction{
		ID:        "bogus-1",
		Type:      "FORMAT_DISK",
		Payload:   json.RawMessage(`{}`),
		Timestamp: time.Now(),
	}
	require.NoError(t, f.store.Set(localstore.KeyOfflineQueue, []model.PendingAction{action}))

	result, err := f.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeadLettered)

	dead, err := f.DeadLetters()
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "FORMAT_DISK", dead[0].Type)
}

func TestReconnectTriggersReplay(t *testing.T) {
	f, gw, monitor, _ := newTestFacade(t, false)
	ctx := context.Background()

	// Scenario: the operator collects the full 57.00 while the link is down
	_, err := f.RegisterPayment(ctx, "cli_007", dec("57.00"), "")
	require.NoError(t, err)
	assert.True(t, cachedDebt(t, f, "cli_007").IsZero())
	assert.True(t, gw.clientDebt("cli_007").Equal(dec("57.00")))

	monitor.Set(true)

	assert.Eventually(t, func() bool {
		queue, err := f.PendingActions()
		if err != nil || len(queue) != 0 {
			return false
		}
		return gw.clientDebt("cli_007").IsZero()
	}, 2*time.Second, 10*time.Millisecond, "queue should drain after reconnect")

	assert.Equal(t, 1, gw.paymentCount())
}
