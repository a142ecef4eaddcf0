package registry

import (
	"context"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
)

// Get returns a device as readers see it now.
func (r *Registry) Get(ctx context.Context, id string) (fleet.Device, error) {
	d, err := r.store.ReadDevice(ctx, id)
	if err != nil {
		return fleet.Device{}, notFound(err, "get device", "device", id)
	}
	return d.Observed(r.now(), r.window), nil
}

// List returns the devices matching filter, ordered by name.
// Connection status is derived against the freshness window.
func (r *Registry) List(ctx context.Context, filter fleet.DeviceFilter) ([]fleet.Device, error) {
	devices, err := r.store.ListDevices(ctx, filter)
	if err != nil {
		return nil, wrap("list devices", err)
	}
	now := r.now()
	for i := range devices {
		devices[i] = devices[i].Observed(now, r.window)
	}
	return devices, nil
}

// SetActive enables or disables a device. Status is left unchanged.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (fleet.Device, error) {
	return r.updateDevice(ctx, id, "set active", func(d *fleet.Device, _ time.Time) error {
		d.Active = active
		return nil
	})
}

// SetStatus applies an administrative status change.
// pending_activation can be neither entered nor left this way.
func (r *Registry) SetStatus(ctx context.Context, id string, status fleet.Status) (fleet.Device, error) {
	if _, err := fleet.ParseStatus(string(status)); err != nil {
		return fleet.Device{}, err
	}
	return r.updateDevice(ctx, id, "set status", func(d *fleet.Device, _ time.Time) error {
		if err := fleet.CheckTransition(id, d.Status, status); err != nil {
			return err
		}
		d.Status = status
		return nil
	})
}

// RecordHeartbeat stores the connection status a device reported and
// moves lastSeen to now. Status is left unchanged.
func (r *Registry) RecordHeartbeat(ctx context.Context, id string, cs fleet.ConnectionStatus) (fleet.Device, error) {
	if _, err := fleet.ParseConnectionStatus(string(cs)); err != nil {
		return fleet.Device{}, err
	}
	return r.updateDevice(ctx, id, "record heartbeat", func(d *fleet.Device, now time.Time) error {
		d.ConnectionStatus = cs
		d.LastSeen = &now
		return nil
	})
}

// Delete hard-removes a device. Activation codes that activated it keep
// their device id for audit.
func (r *Registry) Delete(ctx context.Context, id string) error {
	unlock := r.deviceLocks.Lock(id)
	defer unlock()

	err := r.store.WithTx(ctx, func(q *store.Queries) error {
		return q.DeleteDevice(ctx, id)
	})
	if err != nil {
		return notFound(err, "delete device", "device", id)
	}
	r.logger.Info("device deleted", "device_id", id)
	return nil
}

// updateDevice runs a read-modify-write of one device under its key lock.
func (r *Registry) updateDevice(ctx context.Context, id, op string, apply func(d *fleet.Device, now time.Time) error) (fleet.Device, error) {
	unlock := r.deviceLocks.Lock(id)
	defer unlock()

	now := r.now()
	var out fleet.Device
	err := r.store.WithTx(ctx, func(q *store.Queries) error {
		d, err := q.ReadDevice(ctx, id)
		if err != nil {
			return notFound(err, op, "device", id)
		}
		if err := apply(&d, now); err != nil {
			return err
		}
		d.UpdatedAt = now
		if err := q.UpdateDevice(ctx, d); err != nil {
			return err
		}
		out, err = q.ReadDevice(ctx, id)
		return err
	})
	if err != nil {
		return fleet.Device{}, wrap(op, err)
	}

	r.logger.Info("device updated",
		"op", op,
		"device_id", id,
		"status", out.Status,
		"connection_status", out.ConnectionStatus,
		"active", out.Active)
	return out.Observed(now, r.window), nil
}
