package registry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kioskfleet/internal/codegen"
	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/store"
	"github.com/roach88/kioskfleet/internal/testutil"
)

func TestNew_RejectsBadPolicy(t *testing.T) {
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = New(nil)
	assert.Error(t, err)

	_, err = New(s, WithActivationTTL(0))
	assert.Error(t, err)

	_, err = New(s, WithFreshnessWindow(-time.Second))
	assert.Error(t, err)

	reg, err := New(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultActivationTTL, reg.ActivationTTL())
	assert.Equal(t, DefaultFreshnessWindow, reg.FreshnessWindow())
}

func TestCreateActivation_AssignsTimesAndCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.reg.CreateActivation(ctx, tvDraft(t, "Lobby TV", ""))
	require.NoError(t, err)

	assert.Equal(t, "id-0001", a.ID)
	assert.True(t, fleet.ValidCode(a.Code), "code %q", a.Code)
	assert.Equal(t, testutil.Epoch, a.CreatedAt)
	assert.Equal(t, testutil.Epoch.Add(time.Hour), a.ExpiresAt)
	assert.False(t, a.Used)
	assert.Empty(t, a.DeviceID)
	assert.Equal(t, fleet.DeviceTypeNovaTV, a.Draft.Type())

	stored, err := env.reg.GetActivation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, stored)
}

func TestCreateActivation_ValidatesDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft fleet.DeviceDraft
	}{
		{"missing name", fleet.DeviceDraft{Location: "HQ", Profile: fleet.KioskProfile{}}},
		{"blank name", fleet.DeviceDraft{Name: "   ", Location: "HQ", Profile: fleet.KioskProfile{}}},
		{"missing location", fleet.DeviceDraft{Name: "Kiosk", Profile: fleet.KioskProfile{}}},
		{"missing type", fleet.DeviceDraft{Name: "Kiosk", Location: "HQ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reg.CreateActivation(ctx, tt.draft)
			assert.True(t, fleet.IsValidation(err), "got %v", err)
		})
	}

	codes, err := env.reg.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestCreateActivation_RerollsOnCollision(t *testing.T) {
	// Each byte yields one character: six zeros are "AAAAAA", six ones "BBBBBB".
	src := append(bytes.Repeat([]byte{0}, 12), bytes.Repeat([]byte{1}, 6)...)
	gen, err := codegen.NewWithSource(6, bytes.NewReader(src))
	require.NoError(t, err)

	env := newTestEnv(t, WithCodeGenerator(gen))
	ctx := context.Background()

	first, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk A"))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)

	second, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk B"))
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestCreateActivation_GivesUpAfterMaxAttempts(t *testing.T) {
	src := bytes.Repeat([]byte{0}, 6*(maxCodeAttempts+1))
	gen, err := codegen.NewWithSource(6, bytes.NewReader(src))
	require.NoError(t, err)

	env := newTestEnv(t, WithCodeGenerator(gen))
	ctx := context.Background()

	_, err = env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk A"))
	require.NoError(t, err)

	_, err = env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk B"))
	require.Error(t, err)
	assert.Empty(t, fleet.CodeOf(err), "exhaustion is an internal error")
	assert.Contains(t, err.Error(), "no free code")
}

func TestCreateActivation_TargetDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kiosk := env.activate(t, kioskDraft(t, "Kiosk A"))

	draft := tvDraft(t, "Lobby TV", "")
	draft.TargetDeviceID = kiosk.ID
	_, err := env.reg.CreateActivation(ctx, draft)
	assert.True(t, fleet.IsValidation(err), "type mismatch: got %v", err)

	draft = kioskDraft(t, "Kiosk A")
	draft.TargetDeviceID = "missing"
	_, err = env.reg.CreateActivation(ctx, draft)
	assert.True(t, fleet.IsNotFound(err), "unknown target: got %v", err)
}

func TestListActive_NewestFirstAndExcludesExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Old"))
	require.NoError(t, err)
	env.clock.Advance(30 * time.Minute)
	mid, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Mid"))
	require.NoError(t, err)
	env.clock.Advance(10 * time.Minute)
	newest, err := env.reg.CreateActivation(ctx, kioskDraft(t, "New"))
	require.NoError(t, err)

	codes, err := env.reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 3)
	assert.Equal(t, []string{newest.ID, mid.ID, old.ID}, []string{codes[0].ID, codes[1].ID, codes[2].ID})

	// The oldest code expires exactly at createdAt + TTL.
	env.clock.Advance(20 * time.Minute)
	codes, err = env.reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, newest.ID, codes[0].ID)
	assert.Equal(t, mid.ID, codes[1].ID)
}

func TestListActive_ExcludesUsedAndRevoked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	used, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Used"))
	require.NoError(t, err)
	revoked, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Revoked"))
	require.NoError(t, err)
	live, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Live"))
	require.NoError(t, err)

	_, err = env.reg.Redeem(ctx, used.Code, RedeemExtra{})
	require.NoError(t, err)
	_, err = env.reg.Revoke(ctx, revoked.ID)
	require.NoError(t, err)

	codes, err := env.reg.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, live.ID, codes[0].ID)
}

func TestRevoke(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk"))
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	revoked, err := env.reg.Revoke(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)
	assert.Equal(t, testutil.Epoch.Add(time.Minute), *revoked.RevokedAt)
	assert.False(t, revoked.Used)

	// Revoked codes are never redeemable.
	_, err = env.reg.Redeem(ctx, a.Code, RedeemExtra{})
	assert.True(t, fleet.IsNotFound(err), "got %v", err)

	// Revoking twice is a no-op.
	env.clock.Advance(time.Minute)
	again, err := env.reg.Revoke(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, revoked, again)

	_, err = env.reg.Revoke(ctx, "missing")
	assert.True(t, fleet.IsNotFound(err), "got %v", err)
}

func TestRevoke_UsedCodeFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Kiosk"))
	require.NoError(t, err)
	d, err := env.reg.Redeem(ctx, a.Code, RedeemExtra{})
	require.NoError(t, err)

	_, err = env.reg.Revoke(ctx, a.ID)
	assert.True(t, fleet.IsAlreadyUsed(err), "got %v", err)

	// The activation is untouched.
	got, err := env.reg.GetActivation(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Used)
	assert.Equal(t, d.ID, got.DeviceID)
	assert.Nil(t, got.RevokedAt)
}

func TestSweep_RemovesOnlyLongExpiredUnusedCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expired, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Expired"))
	require.NoError(t, err)
	used, err := env.reg.CreateActivation(ctx, kioskDraft(t, "Used"))
	require.NoError(t, err)
	_, err = env.reg.Redeem(ctx, used.Code, RedeemExtra{})
	require.NoError(t, err)

	// Expired, but still inside retention.
	env.clock.Advance(2 * time.Hour)
	n, err := env.reg.Sweep(ctx, DefaultSweepRetention)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.clock.Advance(DefaultSweepRetention)
	n, err = env.reg.Sweep(ctx, DefaultSweepRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = env.reg.GetActivation(ctx, expired.ID)
	assert.True(t, fleet.IsNotFound(err))
	_, err = env.reg.GetActivation(ctx, used.ID)
	assert.NoError(t, err, "used codes are kept for audit")

	_, err = env.reg.Sweep(ctx, -time.Hour)
	assert.True(t, fleet.IsValidation(err))
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- env.reg.RunSweeper(ctx, time.Millisecond, time.Hour)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}

	assert.Error(t, env.reg.RunSweeper(context.Background(), 0, time.Hour))
}
