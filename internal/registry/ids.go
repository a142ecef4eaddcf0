package registry

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current wall time.
// Implemented by SystemClock (production) and testutil.FakeClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator generates identifiers for activation codes and devices.
// Implemented by UUIDv7Generator (production) and
// testutil.SequenceIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time. This is helpful when reading audit rows by hand.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
