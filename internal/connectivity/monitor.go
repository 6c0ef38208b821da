// Package connectivity tracks whether the remote backend is reachable and
// fans out transition events to subscribers. It is purely event-driven:
// something external (the startup probe, the operator endpoint) tells it
// about transitions, it never polls.
package connectivity

import (
	"log"
	"sync"
	"sync/atomic"
)

// Provider is the injectable contract the sync layer depends on, so tests
// can flip connectivity deterministically.
type Provider interface {
	IsOnline() bool
	Subscribe(fn func(online bool))
}

// Monitor is the concrete Provider. Set flips the flag synchronously and
// notifies subscribers only on actual transitions.
type Monitor struct {
	online atomic.Bool
	mu     sync.Mutex
	subs   []func(online bool)
}

// NewMonitor returns a monitor initialized to the given state
func NewMonitor(online bool) *Monitor {
	m := &Monitor{}
	m.online.Store(online)
	return m
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// Subscribe registers fn to run on every online/offline transition.
// Callbacks run synchronously from Set, in registration order.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Set records the new connectivity state. The flag is flipped before any
// subscriber runs, so callbacks observing IsOnline see the new state.
func (m *Monitor) Set(online bool) {
	if m.online.Swap(online) == online {
		return // no transition
	}
	if online {
		log.Println("Connectivity restored, notifying subscribers")
	} else {
		log.Println("Connectivity lost")
	}
	m.mu.Lock()
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, fn := range subs {
		fn(online)
	}
}
