package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// ReadGlobalStatus returns the fleet-wide status row.
// Returns sql.ErrNoRows if it was never written.
func (q *Queries) ReadGlobalStatus(ctx context.Context) (fleet.GlobalStatus, error) {
	var status string
	var updatedAt int64
	err := q.q.QueryRowContext(ctx, `
		SELECT status, updated_at FROM global_status WHERE id = 1
	`).Scan(&status, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fleet.GlobalStatus{}, err
	}
	if err != nil {
		return fleet.GlobalStatus{}, fmt.Errorf("read global status: %w", err)
	}
	return fleet.GlobalStatus{
		Status:    fleet.OperationalStatus(status),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// WriteGlobalStatus overwrites the single fleet-wide status row.
// Last write wins; there is no version check.
func (q *Queries) WriteGlobalStatus(ctx context.Context, gs fleet.GlobalStatus) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO global_status (id, status, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`, string(gs.Status), toMillis(gs.UpdatedAt))
	if err != nil {
		return fmt.Errorf("write global status: %w", err)
	}
	return nil
}
