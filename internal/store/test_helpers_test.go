package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/kioskfleet/internal/fleet"
)

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestActivation creates a live kiosk activation code with minimal required fields.
func createTestActivation(id, code string, createdAt time.Time) fleet.ActivationCode {
	return fleet.ActivationCode{
		ID:   id,
		Code: code,
		Draft: fleet.DeviceDraft{
			Name:     "Kiosk " + id,
			Location: "HQ-1F",
			Profile:  fleet.KioskProfile{},
		},
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(time.Hour),
	}
}

// createTestDevice creates an online device with minimal required fields.
func createTestDevice(id, name string, profile fleet.Profile) fleet.Device {
	seen := testEpoch
	return fleet.Device{
		ID:               id,
		Name:             name,
		Location:         "HQ-1F",
		Profile:          profile,
		Status:           fleet.StatusOnline,
		ConnectionStatus: fleet.ConnectionOnline,
		Active:           true,
		LastSeen:         &seen,
		CreatedAt:        testEpoch,
		UpdatedAt:        testEpoch,
	}
}

// mustInsertActivation writes a through a transaction and fails the test on error.
func mustInsertActivation(t *testing.T, s *Store, a fleet.ActivationCode) {
	t.Helper()
	err := s.WithTx(context.Background(), func(q *Queries) error {
		inserted, err := q.InsertActivation(context.Background(), a)
		if err != nil {
			return err
		}
		if !inserted {
			t.Fatalf("activation %s not inserted", a.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InsertActivation() failed: %v", err)
	}
}

// mustInsertDevice writes d through a transaction and fails the test on error.
func mustInsertDevice(t *testing.T, s *Store, d fleet.Device) {
	t.Helper()
	err := s.WithTx(context.Background(), func(q *Queries) error {
		return q.InsertDevice(context.Background(), d)
	})
	if err != nil {
		t.Fatalf("InsertDevice() failed: %v", err)
	}
}
