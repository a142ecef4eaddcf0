package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
)

const activationColumns = `
	id, code, name, location, asset_tag, serial_number, type, department,
	target_device_id, created_at, expires_at, used, device_id, used_at, revoked_at`

// liveActivationPredicate selects codes that are unused, unrevoked and
// unexpired at the bound "now" parameter.
const liveActivationPredicate = `used = 0 AND revoked_at IS NULL AND expires_at > ?`

// InsertActivation inserts a new activation code.
// Uses ON CONFLICT(code) DO NOTHING: if the code value already exists the
// row is not written and inserted is false, so the caller can re-roll.
// Other constraint violations (e.g., duplicate id) still return errors.
func (q *Queries) InsertActivation(ctx context.Context, a fleet.ActivationCode) (inserted bool, err error) {
	tv := a.Draft.Type() == fleet.DeviceTypeNovaTV

	result, err := q.q.ExecContext(ctx, `
		INSERT INTO activation_codes
		(id, code, name, location, asset_tag, serial_number, type, department,
		 target_device_id, created_at, expires_at, used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(code) DO NOTHING
	`,
		a.ID,
		a.Code,
		a.Draft.Name,
		a.Draft.Location,
		a.Draft.AssetTag,
		a.Draft.SerialNumber,
		string(a.Draft.Type()),
		nullString(a.Draft.Department(), tv),
		a.Draft.TargetDeviceID,
		toMillis(a.CreatedAt),
		toMillis(a.ExpiresAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert activation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert activation: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ReadActivation retrieves an activation code by ID.
// Returns sql.ErrNoRows if not found.
func (q *Queries) ReadActivation(ctx context.Context, id string) (fleet.ActivationCode, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT`+activationColumns+`
		FROM activation_codes
		WHERE id = ?
	`, id)
	return scanActivation(row)
}

// ReadActivationByCode retrieves an activation code by its normalized code value.
// Returns sql.ErrNoRows if not found.
func (q *Queries) ReadActivationByCode(ctx context.Context, code string) (fleet.ActivationCode, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT`+activationColumns+`
		FROM activation_codes
		WHERE code = ?
	`, code)
	return scanActivation(row)
}

// ListLiveActivations returns codes that are live at now, newest first.
// Ordered by created_at DESC, id ASC COLLATE BINARY.
func (q *Queries) ListLiveActivations(ctx context.Context, now time.Time) ([]fleet.ActivationCode, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT`+activationColumns+`
		FROM activation_codes
		WHERE `+liveActivationPredicate+`
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("query live activations: %w", err)
	}
	defer rows.Close()

	codes := []fleet.ActivationCode{}
	for rows.Next() {
		a, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live activations: %w", err)
	}
	return codes, nil
}

// CountLiveActivations returns the number of codes live at now.
func (q *Queries) CountLiveActivations(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activation_codes
		WHERE `+liveActivationPredicate, toMillis(now)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live activations: %w", err)
	}
	return n, nil
}

// ClaimActivation is the compare-and-swap at the heart of redemption: it
// flips used 0→1 and links deviceID only if the code is still live at now.
// Returns claimed=false when another caller got there first (or the code
// expired or was revoked in between).
func (q *Queries) ClaimActivation(ctx context.Context, id, deviceID string, now time.Time) (claimed bool, err error) {
	result, err := q.q.ExecContext(ctx, `
		UPDATE activation_codes
		SET used = 1, device_id = ?, used_at = ?
		WHERE id = ? AND `+liveActivationPredicate,
		deviceID, toMillis(now), id, toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("claim activation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim activation: rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// RevokeActivation marks an unused code as revoked.
// Returns revoked=false if the code was already used or revoked.
func (q *Queries) RevokeActivation(ctx context.Context, id string, now time.Time) (revoked bool, err error) {
	result, err := q.q.ExecContext(ctx, `
		UPDATE activation_codes
		SET revoked_at = ?
		WHERE id = ? AND used = 0 AND revoked_at IS NULL
	`, toMillis(now), id)
	if err != nil {
		return false, fmt.Errorf("revoke activation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke activation: rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// DeleteExpiredActivations garbage-collects unused, unrevoked codes that
// expired before cutoff. Used and revoked codes are retained for audit.
func (q *Queries) DeleteExpiredActivations(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.q.ExecContext(ctx, `
		DELETE FROM activation_codes
		WHERE used = 0 AND revoked_at IS NULL AND expires_at <= ?
	`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete expired activations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired activations: rows affected: %w", err)
	}
	return n, nil
}

func scanActivation(s scanner) (fleet.ActivationCode, error) {
	var a fleet.ActivationCode
	var deviceType string
	var department, deviceID sql.NullString
	var createdAt, expiresAt int64
	var used int
	var usedAt, revokedAt sql.NullInt64

	if err := s.Scan(
		&a.ID, &a.Code, &a.Draft.Name, &a.Draft.Location, &a.Draft.AssetTag,
		&a.Draft.SerialNumber, &deviceType, &department, &a.Draft.TargetDeviceID,
		&createdAt, &expiresAt, &used, &deviceID, &usedAt, &revokedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fleet.ActivationCode{}, err
		}
		return fleet.ActivationCode{}, fmt.Errorf("scan activation: %w", err)
	}

	profile, err := fleet.NewProfile(fleet.DeviceType(deviceType), department.String)
	if err != nil {
		return fleet.ActivationCode{}, fmt.Errorf("scan activation %s: %w", a.ID, err)
	}
	a.Draft.Profile = profile
	a.CreatedAt = fromMillis(createdAt)
	a.ExpiresAt = fromMillis(expiresAt)
	a.Used = used != 0
	a.DeviceID = deviceID.String
	a.UsedAt = fromNullMillis(usedAt)
	a.RevokedAt = fromNullMillis(revokedAt)
	return a, nil
}
