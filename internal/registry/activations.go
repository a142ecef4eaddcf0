package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
)

// CreateActivation issues a new activation code for draft.
//
// The draft is normalized and validated first. A draft carrying a
// TargetDeviceID must name an existing device of the same type; redeeming
// such a code re-activates that device instead of creating one.
//
// The code value is drawn from the generator and inserted with the store's
// ON CONFLICT(code) guard; on collision a new value is drawn, up to
// maxCodeAttempts times.
func (r *Registry) CreateActivation(ctx context.Context, draft fleet.DeviceDraft) (fleet.ActivationCode, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return fleet.ActivationCode{}, err
	}

	if draft.TargetDeviceID != "" {
		target, err := r.store.ReadDevice(ctx, draft.TargetDeviceID)
		if err != nil {
			return fleet.ActivationCode{}, notFound(err, "create activation", "device", draft.TargetDeviceID)
		}
		if target.Type() != draft.Type() {
			return fleet.ActivationCode{}, fleet.NewValidationError(fmt.Sprintf(
				"device %s is a %s, draft is a %s", target.ID, target.Type(), draft.Type()))
		}
	}

	now := r.now()
	a := fleet.ActivationCode{
		ID:        r.ids.Generate(),
		Draft:     draft,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := r.codes.Generate()
		if err != nil {
			return fleet.ActivationCode{}, wrap("create activation", err)
		}
		a.Code = code

		var inserted bool
		err = r.store.WithTx(ctx, func(q *store.Queries) error {
			var err error
			inserted, err = q.InsertActivation(ctx, a)
			return err
		})
		if err != nil {
			return fleet.ActivationCode{}, wrap("create activation", err)
		}
		if inserted {
			r.logger.Info("activation code created",
				"activation_id", a.ID,
				"type", draft.Type(),
				"name", draft.Name,
				"expires_at", a.ExpiresAt,
				"attempts", attempt)
			return a, nil
		}
		r.logger.Debug("activation code collision, re-rolling", "attempt", attempt)
	}
	return fleet.ActivationCode{}, fmt.Errorf("create activation: no free code after %d attempts", maxCodeAttempts)
}

// ListActive returns the codes that are live now, newest first.
func (r *Registry) ListActive(ctx context.Context) ([]fleet.ActivationCode, error) {
	codes, err := r.store.ListLiveActivations(ctx, r.now())
	if err != nil {
		return nil, wrap("list activations", err)
	}
	return codes, nil
}

// GetActivation returns an activation code by id, whatever its state.
func (r *Registry) GetActivation(ctx context.Context, id string) (fleet.ActivationCode, error) {
	a, err := r.store.ReadActivation(ctx, id)
	if err != nil {
		return fleet.ActivationCode{}, notFound(err, "get activation", "activation code", id)
	}
	return a, nil
}

// Revoke withdraws an unredeemed code so it can never be redeemed.
//
// Revoking a code that was already revoked returns it unchanged. Revoking
// a redeemed code fails with ALREADY_USED: revocation cannot undo an
// activation.
func (r *Registry) Revoke(ctx context.Context, id string) (fleet.ActivationCode, error) {
	a, err := r.store.ReadActivation(ctx, id)
	if err != nil {
		return fleet.ActivationCode{}, notFound(err, "revoke", "activation code", id)
	}

	unlock := r.codeLocks.Lock(a.Code)
	defer unlock()

	now := r.now()
	err = r.store.WithTx(ctx, func(q *store.Queries) error {
		current, err := q.ReadActivation(ctx, id)
		if err != nil {
			return notFound(err, "revoke", "activation code", id)
		}
		switch {
		case current.Used:
			return fleet.NewAlreadyUsedError(id)
		case current.Revoked():
			a = current
			return nil
		}
		if _, err := q.RevokeActivation(ctx, id, now); err != nil {
			return err
		}
		a, err = q.ReadActivation(ctx, id)
		return err
	})
	if err != nil {
		return fleet.ActivationCode{}, wrap("revoke", err)
	}

	r.logger.Info("activation code revoked", "activation_id", id)
	return a, nil
}

// Sweep deletes codes that expired unused more than retention ago.
// Used and revoked codes are kept for audit. Returns the number removed.
func (r *Registry) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 0 {
		return 0, fleet.NewValidationError("retention must not be negative")
	}
	cutoff := r.now().Add(-retention)

	var n int64
	err := r.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		n, err = q.DeleteExpiredActivations(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, wrap("sweep", err)
	}
	if n > 0 {
		r.logger.Info("expired activation codes swept", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
// Sweep failures are logged and do not stop the loop.
func (r *Registry) RunSweeper(ctx context.Context, interval, retention time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweeper: interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Sweep(ctx, retention); err != nil {
				r.logger.Warn("sweep failed", "error", err)
			}
		}
	}
}
