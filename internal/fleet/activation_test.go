package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCode() ActivationCode {
	return ActivationCode{
		ID:        "a-1",
		Code:      "ABC234",
		Draft:     DeviceDraft{Name: "Kiosk", Location: "HQ", Profile: KioskProfile{}},
		CreatedAt: t0,
		ExpiresAt: t0.Add(time.Hour),
	}
}

func TestActivationCode_Expiry(t *testing.T) {
	a := testCode()

	assert.False(t, a.Expired(t0))
	assert.False(t, a.Expired(a.ExpiresAt.Add(-time.Millisecond)))
	assert.True(t, a.Expired(a.ExpiresAt), "a code is dead at its expiry instant")
}

func TestActivationCode_Live(t *testing.T) {
	a := testCode()
	assert.True(t, a.Live(t0))

	used := a
	used.Used = true
	assert.False(t, used.Live(t0))

	revoked := a
	revoked.RevokedAt = seenAt(t0)
	assert.False(t, revoked.Live(t0))

	assert.False(t, a.Live(a.ExpiresAt))
}

func TestActivationCode_CheckRedeemable(t *testing.T) {
	a := testCode()
	assert.NoError(t, a.CheckRedeemable(t0))
	assert.True(t, IsExpired(a.CheckRedeemable(a.ExpiresAt)))

	used := a
	used.Used = true
	assert.True(t, IsAlreadyUsed(used.CheckRedeemable(t0)))
	assert.True(t, IsAlreadyUsed(used.CheckRedeemable(a.ExpiresAt)), "used wins over expired")

	revoked := a
	revoked.RevokedAt = seenAt(t0)
	assert.True(t, IsNotFound(revoked.CheckRedeemable(t0)), "revoked codes look unknown")
}
