package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// Snapshot is a consistent view of both stores at one instant.
type Snapshot struct {
	Devices             []fleet.Device
	LiveActivationCodes int
}

// ReadSnapshot reads every device and the live-code count inside one read
// transaction, so aggregates computed from it agree with each other even
// while writers commit concurrently.
func (s *Store) ReadSnapshot(ctx context.Context, now time.Time) (Snapshot, error) {
	var snap Snapshot
	err := s.WithReadTx(ctx, func(q *Queries) error {
		devices, err := q.ListDevices(ctx, fleet.DeviceFilter{})
		if err != nil {
			return err
		}
		live, err := q.CountLiveActivations(ctx, now)
		if err != nil {
			return err
		}
		snap = Snapshot{Devices: devices, LiveActivationCodes: live}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}
