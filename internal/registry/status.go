package registry

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
)

// GlobalStatus returns the fleet-wide operational status.
// Before any write it reads as open with a zero UpdatedAt.
func (r *Registry) GlobalStatus(ctx context.Context) (fleet.GlobalStatus, error) {
	gs, err := r.store.ReadGlobalStatus(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.DefaultGlobalStatus, nil
	}
	if err != nil {
		return fleet.GlobalStatus{}, wrap("get global status", err)
	}
	return gs, nil
}

// SetGlobalStatus overwrites the fleet-wide status. Last write wins.
// Subscribers receive the new value after it is stored.
func (r *Registry) SetGlobalStatus(ctx context.Context, status fleet.OperationalStatus) (fleet.GlobalStatus, error) {
	if _, err := fleet.ParseOperationalStatus(string(status)); err != nil {
		return fleet.GlobalStatus{}, err
	}

	r.statusMu.Lock()
	defer r.statusMu.Unlock()

	gs := fleet.GlobalStatus{Status: status, UpdatedAt: r.now()}
	err := r.store.WithTx(ctx, func(q *store.Queries) error {
		return q.WriteGlobalStatus(ctx, gs)
	})
	if err != nil {
		return fleet.GlobalStatus{}, wrap("set global status", err)
	}

	r.subs.publish(gs)
	r.logger.Info("global status set", "status", status)
	return gs, nil
}

// SubscribeGlobalStatus returns a channel that receives every later global
// status write, and a cancel function that closes it.
//
// The channel holds only the latest value: a slow reader skips
// intermediate values instead of blocking writers.
func (r *Registry) SubscribeGlobalStatus() (<-chan fleet.GlobalStatus, func()) {
	return r.subs.subscribe()
}

// broadcaster fans global status values out to in-process subscribers.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan fleet.GlobalStatus
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan fleet.GlobalStatus)}
}

func (b *broadcaster) subscribe() (<-chan fleet.GlobalStatus, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan fleet.GlobalStatus, 1)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish never blocks: a full buffer has its stale value replaced.
// Only publish sends, and it holds mu, so the second send cannot block.
func (b *broadcaster) publish(gs fleet.GlobalStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- gs:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- gs
		}
	}
}

func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
