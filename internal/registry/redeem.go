package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
)

// RedeemExtra carries what a device reports about itself at first boot.
type RedeemExtra struct {
	// SerialNumber fills the draft's serial number when the operator left
	// it empty. A serial entered by the operator is never overwritten.
	SerialNumber string
}

// Redeem consumes an activation code and returns the device it activated.
//
// The code is normalized before lookup. Outcomes, in order of precedence:
// unknown or revoked code (NOT_FOUND), already redeemed (ALREADY_USED),
// past its TTL (EXPIRED). A successful redemption creates a new device,
// or re-activates the draft's target device, with status and connection
// online and lastSeen set to now.
//
// At most one call succeeds per code. Concurrent callers for the same code
// serialize on a per-code lock, and the claim itself is a conditional
// update in the same transaction as the device write: if anything fails
// after the claim, the transaction rolls back and the code stays
// redeemable.
func (r *Registry) Redeem(ctx context.Context, code string, extra RedeemExtra) (fleet.Device, error) {
	normalized := fleet.NormalizeCode(code)
	if normalized == "" {
		return fleet.Device{}, fleet.NewValidationError("code is required")
	}

	unlock := r.codeLocks.Lock(normalized)
	defer unlock()

	// The target device id is immutable on the code, so it can be read
	// before the transaction to take the device lock in the usual order:
	// key locks first, then the writer.
	a, err := r.store.ReadActivationByCode(ctx, normalized)
	if err != nil {
		return fleet.Device{}, notFound(err, "redeem", "activation code", normalized)
	}
	if target := a.Draft.TargetDeviceID; target != "" {
		unlockDevice := r.deviceLocks.Lock(target)
		defer unlockDevice()
	}

	now := r.now()
	var device fleet.Device
	err = r.store.WithTx(ctx, func(q *store.Queries) error {
		a, err := q.ReadActivationByCode(ctx, normalized)
		if err != nil {
			return notFound(err, "redeem", "activation code", normalized)
		}
		if err := a.CheckRedeemable(now); err != nil {
			return err
		}

		draft := a.Draft
		if draft.SerialNumber == "" {
			draft.SerialNumber = strings.TrimSpace(extra.SerialNumber)
		}
		deviceID := draft.TargetDeviceID
		if deviceID == "" {
			deviceID = r.ids.Generate()
		}

		claimed, err := q.ClaimActivation(ctx, a.ID, deviceID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return fleet.NewAlreadyUsedError(a.ID)
		}
		if r.afterClaim != nil {
			if err := r.afterClaim(); err != nil {
				return err
			}
		}

		if draft.TargetDeviceID != "" {
			err = reactivate(ctx, q, a.ID, draft, now)
		} else {
			err = q.InsertDevice(ctx, fleet.Device{
				ID:               deviceID,
				Name:             draft.Name,
				Location:         draft.Location,
				AssetTag:         draft.AssetTag,
				SerialNumber:     draft.SerialNumber,
				Profile:          draft.Profile,
				Status:           fleet.StatusOnline,
				ConnectionStatus: fleet.ConnectionOnline,
				Active:           true,
				LastSeen:         &now,
				ActivationCodeID: a.ID,
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}
		if err != nil {
			return err
		}

		device, err = q.ReadDevice(ctx, deviceID)
		return err
	})
	if err != nil {
		r.logger.Debug("redemption rejected", "code", normalized, "error", err)
		return fleet.Device{}, wrap("redeem", err)
	}

	r.logger.Info("device activated",
		"activation_id", a.ID,
		"device_id", device.ID,
		"type", device.Type(),
		"reactivated", a.Draft.TargetDeviceID != "")
	return device.Observed(now, r.window), nil
}

// reactivate applies a redeemed draft to its existing target device.
func reactivate(ctx context.Context, q *store.Queries, codeID string, draft fleet.DeviceDraft, now time.Time) error {
	d, err := q.ReadDevice(ctx, draft.TargetDeviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.NewNotFoundError("device", draft.TargetDeviceID)
	}
	if err != nil {
		return err
	}
	if d.Type() != draft.Type() {
		return fleet.NewValidationError(fmt.Sprintf(
			"device %s is a %s, draft is a %s", d.ID, d.Type(), draft.Type()))
	}

	d.Name = draft.Name
	d.Location = draft.Location
	d.AssetTag = draft.AssetTag
	if draft.SerialNumber != "" {
		d.SerialNumber = draft.SerialNumber
	}
	d.Profile = draft.Profile
	d.Status = fleet.StatusOnline
	d.ConnectionStatus = fleet.ConnectionOnline
	d.Active = true
	d.LastSeen = &now
	d.ActivationCodeID = codeID
	d.UpdatedAt = now
	return q.UpdateDevice(ctx, d)
}
