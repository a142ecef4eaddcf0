package registry

import (
	"context"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// Summary aggregates the fleet from one consistent store snapshot.
// The counts are recomputed on every call, so they always match List.
func (r *Registry) Summary(ctx context.Context) (fleet.Summary, error) {
	now := r.now()
	snap, err := r.store.ReadSnapshot(ctx, now)
	if err != nil {
		return fleet.Summary{}, wrap("summary", err)
	}
	return fleet.Summarize(snap.Devices, snap.LiveActivationCodes, now, r.window), nil
}
