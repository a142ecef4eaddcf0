package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kioskfleet/internal/fleet"
)

const deviceColumns = `
	id, type, name, location, asset_tag, serial_number, department, status,
	connection_status, active, last_seen, activation_code_id, created_at, updated_at`

// InsertDevice inserts a new device row.
func (q *Queries) InsertDevice(ctx context.Context, d fleet.Device) error {
	tv := d.Type() == fleet.DeviceTypeNovaTV

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO devices
		(id, type, name, location, asset_tag, serial_number, department, status,
		 connection_status, active, last_seen, activation_code_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID,
		string(d.Type()),
		d.Name,
		d.Location,
		d.AssetTag,
		d.SerialNumber,
		nullString(d.Department(), tv),
		string(d.Status),
		string(d.ConnectionStatus),
		boolInt(d.Active),
		nullMillis(d.LastSeen),
		d.ActivationCodeID,
		toMillis(d.CreatedAt),
		toMillis(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// UpdateDevice writes every mutable column of an existing device.
// The type column is immutable and never written. last_seen never moves
// backwards: the stored value is the maximum of the old and new values.
// Returns sql.ErrNoRows if the device does not exist.
func (q *Queries) UpdateDevice(ctx context.Context, d fleet.Device) error {
	tv := d.Type() == fleet.DeviceTypeNovaTV
	lastSeen := nullMillis(d.LastSeen)

	result, err := q.q.ExecContext(ctx, `
		UPDATE devices SET
			name = ?,
			location = ?,
			asset_tag = ?,
			serial_number = ?,
			department = ?,
			status = ?,
			connection_status = ?,
			active = ?,
			last_seen = CASE WHEN ? IS NULL THEN last_seen ELSE MAX(COALESCE(last_seen, 0), ?) END,
			activation_code_id = ?,
			updated_at = ?
		WHERE id = ?
	`,
		d.Name,
		d.Location,
		d.AssetTag,
		d.SerialNumber,
		nullString(d.Department(), tv),
		string(d.Status),
		string(d.ConnectionStatus),
		boolInt(d.Active),
		lastSeen, lastSeen,
		d.ActivationCodeID,
		toMillis(d.UpdatedAt),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update device: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDevice hard-removes a device.
// Returns sql.ErrNoRows if the device does not exist. Activation codes that
// reference the device keep their device_id.
func (q *Queries) DeleteDevice(ctx context.Context, id string) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete device: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReadDevice retrieves a device by ID.
// Returns sql.ErrNoRows if not found.
func (q *Queries) ReadDevice(ctx context.Context, id string) (fleet.Device, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT`+deviceColumns+`
		FROM devices
		WHERE id = ?
	`, id)
	return scanDevice(row)
}

// ListDevices returns devices matching filter, ordered by name then id.
func (q *Queries) ListDevices(ctx context.Context, filter fleet.DeviceFilter) ([]fleet.Device, error) {
	query := `SELECT` + deviceColumns + ` FROM devices`
	var args []any
	if filter.Type != "" {
		query += ` WHERE type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY name ASC, id COLLATE BINARY ASC`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	devices := []fleet.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func scanDevice(s scanner) (fleet.Device, error) {
	var d fleet.Device
	var deviceType, status, connection string
	var department sql.NullString
	var active int
	var lastSeen sql.NullInt64
	var createdAt, updatedAt int64

	if err := s.Scan(
		&d.ID, &deviceType, &d.Name, &d.Location, &d.AssetTag, &d.SerialNumber,
		&department, &status, &connection, &active, &lastSeen,
		&d.ActivationCodeID, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fleet.Device{}, err
		}
		return fleet.Device{}, fmt.Errorf("scan device: %w", err)
	}

	profile, err := fleet.NewProfile(fleet.DeviceType(deviceType), department.String)
	if err != nil {
		return fleet.Device{}, fmt.Errorf("scan device %s: %w", d.ID, err)
	}
	d.Profile = profile
	d.Status = fleet.Status(status)
	d.ConnectionStatus = fleet.ConnectionStatus(connection)
	d.Active = active != 0
	d.LastSeen = fromNullMillis(lastSeen)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	return d, nil
}
