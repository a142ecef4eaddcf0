package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
	"github.com/roach88/kioskfleet/internal/testutil"
)

// testEnv bundles a registry with the fakes driving it.
type testEnv struct {
	reg   *Registry
	clock *testutil.FakeClock
	store *store.Store
}

// newTestEnv creates a registry over a file-backed store in t.TempDir(),
// a fake clock at testutil.Epoch, and sequential ids.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "fleet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewFakeClock()
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequenceIDGenerator("id")),
	}
	reg, err := New(s, append(base, opts...)...)
	require.NoError(t, err)

	return &testEnv{reg: reg, clock: clock, store: s}
}

func kioskDraft(t *testing.T, name string) fleet.DeviceDraft {
	t.Helper()
	d, err := fleet.NewDeviceDraft(name, "HQ-1F", "", "", fleet.DeviceTypeKiosk, "")
	require.NoError(t, err)
	return d
}

func tvDraft(t *testing.T, name, department string) fleet.DeviceDraft {
	t.Helper()
	d, err := fleet.NewDeviceDraft(name, "HQ-1F", "", "", fleet.DeviceTypeNovaTV, department)
	require.NoError(t, err)
	return d
}

// activate creates a code for draft and redeems it.
func (e *testEnv) activate(t *testing.T, draft fleet.DeviceDraft) fleet.Device {
	t.Helper()
	ctx := context.Background()
	a, err := e.reg.CreateActivation(ctx, draft)
	require.NoError(t, err)
	d, err := e.reg.Redeem(ctx, a.Code, RedeemExtra{})
	require.NoError(t, err)
	return d
}
