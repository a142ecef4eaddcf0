package fleet

import (
	"encoding/json"
	"time"
)

// ActivationCode is a pending activation: a draft device plus a
// short-lived, single-use code that materializes it.
type ActivationCode struct {
	ID        string
	Code      string
	Draft     DeviceDraft
	CreatedAt time.Time
	ExpiresAt time.Time

	// Used flips false→true exactly once, at redemption.
	Used bool

	// DeviceID is set together with Used.
	DeviceID string
	UsedAt   *time.Time

	// RevokedAt is set when an operator withdrew the code before use.
	RevokedAt *time.Time
}

// Expired reports whether the code's TTL has elapsed at now.
func (a ActivationCode) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Revoked reports whether the code was withdrawn.
func (a ActivationCode) Revoked() bool {
	return a.RevokedAt != nil
}

// Live reports whether the code can still be redeemed at now.
func (a ActivationCode) Live(now time.Time) bool {
	return !a.Used && !a.Revoked() && !a.Expired(now)
}

// CheckRedeemable explains why a code cannot be redeemed at now, or
// returns nil when it can. A revoked code is indistinguishable from an
// unknown one to the redeeming device.
func (a ActivationCode) CheckRedeemable(now time.Time) error {
	switch {
	case a.Revoked():
		return NewNotFoundError("activation code", a.ID)
	case a.Used:
		return NewAlreadyUsedError(a.ID)
	case a.Expired(now):
		return NewExpiredError(a.ID)
	}
	return nil
}

type activationJSON struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	Draft     DeviceDraft `json:"deviceDraft"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Used      bool        `json:"used"`
	DeviceID  string      `json:"deviceId,omitempty"`
	UsedAt    *time.Time  `json:"usedAt,omitempty"`
	RevokedAt *time.Time  `json:"revokedAt,omitempty"`
}

// MarshalJSON renders the code with camelCase field names.
func (a ActivationCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(activationJSON(a))
}
