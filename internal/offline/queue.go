package offline

import (
	"panpos/internal/localstore"
	"panpos/internal/model"
)

// appendQueue appends inside an already-open local store transaction so the
// queue write and the optimistic cache mutation commit together.
func appendQueue(tx *localstore.Tx, action model.PendingAction) error {
	var queue []model.PendingAction
	if _, err := tx.Get(localstore.KeyOfflineQueue, &queue); err != nil {
		return err
	}
	queue = append(queue, action)
	return tx.Set(localstore.KeyOfflineQueue, queue)
}

// PendingActions returns a snapshot of the durable offline queue in enqueue
// order.
func (f *Facade) PendingActions() ([]model.PendingAction, error) {
	f.queueMu.Lock()
	defer f.queueMu.Unlock()

	var queue []model.PendingAction
	if _, err := f.store.Get(localstore.KeyOfflineQueue, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

// DeadLetters returns the actions that exhausted their replay attempts and
// now need operator attention.
func (f *Facade) DeadLetters() ([]model.PendingAction, error) {
	var dead []model.PendingAction
	if _, err := f.store.Get(localstore.KeyDeadLetterQueue, &dead); err != nil {
		return nil, err
	}
	return dead, nil
}
