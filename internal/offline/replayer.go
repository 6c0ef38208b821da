package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"panpos/internal/gateway"
	"panpos/internal/localstore"
	"panpos/internal/model"
)

// ReplayResult summarizes one replay pass
type ReplayResult struct {
	// Skipped is true when another replay pass was already running
	Skipped      bool `json:"skipped"`
	Attempted    int  `json:"attempted"`
	Succeeded    int  `json:"succeeded"`
	Failed       int  `json:"failed"`
	DeadLettered int  `json:"deadLettered"`
}

// Replay drains the pending queue against the gateway in strict enqueue
// order. Later actions depend on earlier debt/stock adjustments having been
// attempted first. A per-action failure is isolated: the action stays queued
// (or dead-letters after too many attempts) and the pass continues, so
// partial progress is preserved. Overlapping reconnect events collapse into
// one pass via the single-flight guard.
func (f *Facade) Replay(ctx context.Context) (ReplayResult, error) {
	if !f.replayMu.TryLock() {
		return ReplayResult{Skipped: true}, nil
	}
	defer f.replayMu.Unlock()

	f.queueMu.Lock()
	var snapshot []model.PendingAction
	_, err := f.store.Get(localstore.KeyOfflineQueue, &snapshot)
	f.queueMu.Unlock()
	if err != nil {
		return ReplayResult{}, fmt.Errorf("read offline queue: %w", err)
	}
	if len(snapshot) == 0 {
		return ReplayResult{}, nil
	}

	result := ReplayResult{Attempted: len(snapshot)}
	f.events.Publish(EventReplayStarted, map[string]interface{}{"pending": len(snapshot)})
	log.Printf("Replaying %d pending action(s)", len(snapshot))

	succeeded := make(map[string]bool, len(snapshot))
	updated := make(map[string]model.PendingAction, len(snapshot))
	var dead []model.PendingAction

	for _, action := range snapshot {
		if err := f.dispatch(ctx, action); err != nil {
			action.Attempts++
			log.Printf("Replay of %s %s failed (attempt %d): %v", action.Type, action.ID, action.Attempts, err)
			if action.Attempts >= f.cfg.MaxReplayAttempts {
				dead = append(dead, action)
				result.DeadLettered++
				f.events.Publish(EventDeadLetter, map[string]interface{}{"type": action.Type, "id": action.ID})
			} else {
				updated[action.ID] = action
				result.Failed++
			}
			continue
		}
		succeeded[action.ID] = true
		result.Succeeded++
	}

	deadIDs := make(map[string]bool, len(dead))
	for _, action := range dead {
		deadIDs[action.ID] = true
	}

	// Rebuild the queue: drop what succeeded or dead-lettered, keep failures
	// with their bumped attempt counts, and preserve anything enqueued while
	// this pass was running.
	f.queueMu.Lock()
	err = f.store.Update(func(tx *localstore.Tx) error {
		var current []model.PendingAction
		if _, err := tx.Get(localstore.KeyOfflineQueue, &current); err != nil {
			return err
		}
		remaining := make([]model.PendingAction, 0, len(current))
		for _, action := range current {
			if succeeded[action.ID] || deadIDs[action.ID] {
				continue
			}
			if bumped, ok := updated[action.ID]; ok {
				action = bumped
			}
			remaining = append(remaining, action)
		}
		if err := tx.Set(localstore.KeyOfflineQueue, remaining); err != nil {
			return err
		}

		if len(dead) > 0 {
			var letters []model.PendingAction
			if _, err := tx.Get(localstore.KeyDeadLetterQueue, &letters); err != nil {
				return err
			}
			letters = append(letters, dead...)
			if err := tx.Set(localstore.KeyDeadLetterQueue, letters); err != nil {
				return err
			}
		}
		return nil
	})
	f.queueMu.Unlock()
	if err != nil {
		return result, fmt.Errorf("persist queue after replay: %w", err)
	}

	if result.Failed == 0 {
		// Queue fully drained: pull authoritative state back into the cache
		f.refreshCaches(ctx)
	}

	f.auditLog(ctx, model.ActionReplay,
		fmt.Sprintf("replayed %d action(s): %d ok, %d still pending, %d dead-lettered",
			result.Attempted, result.Succeeded, result.Failed, result.DeadLettered))
	f.events.Publish(EventReplayFinished, map[string]interface{}{
		"attempted":    result.Attempted,
		"succeeded":    result.Succeeded,
		"failed":       result.Failed,
		"deadLettered": result.DeadLettered,
	})
	return result, nil
}

// dispatch executes one pending action remotely. ErrAlreadyApplied counts as
// success: the action landed on an earlier pass whose response was lost.
func (f *Facade) dispatch(ctx context.Context, action model.PendingAction) error {
	gctx, cancel := f.bound(ctx)
	defer cancel()

	switch action.Type {
	case model.PendingSaleRetail, model.PendingSaleDispatch:
		var payload model.SalePayload
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return fmt.Errorf("decode sale payload: %w", err)
		}
		saleType := model.SaleTypePOS
		if action.Type == model.PendingSaleDispatch {
			saleType = model.SaleTypeDispatch
		}
		sale := &model.Sale{
			ID:          payload.SaleID,
			Date:        payload.Date,
			Type:        saleType,
			Items:       payload.Items,
			TotalAmount: payload.Items.Total(),
			ClientID:    payload.ClientID,
			SellerID:    payload.SellerID,
		}
		err := f.gw.CreateSale(gctx, action.ID, sale)
		if errors.Is(err, gateway.ErrAlreadyApplied) {
			return nil
		}
		return err

	case model.PendingPayment:
		var payload model.PaymentPayload
		if err := json.Unmarshal(action.Payload, &payload); err != nil {
			return fmt.Errorf("decode payment payload: %w", err)
		}
		payment := &model.Payment{
			ID:       payload.PaymentID,
			ClientID: payload.ClientID,
			Amount:   payload.Amount,
			Date:     payload.Date,
			Note:     payload.Note,
		}
		err := f.gw.RegisterPayment(gctx, action.ID, payment)
		if errors.Is(err, gateway.ErrAlreadyApplied) {
			return nil
		}
		return err

	case model.PendingUpdateClient:
		var client model.Client
		if err := json.Unmarshal(action.Payload, &client); err != nil {
			return fmt.Errorf("decode client payload: %w", err)
		}
		// Upserts are naturally idempotent; no action id needed
		return f.gw.UpsertClient(gctx, &client)

	default:
		return fmt.Errorf("unknown pending action type %q", action.Type)
	}
}
