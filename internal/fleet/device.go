package fleet

import (
	"encoding/json"
	"time"
)

// Device is a durable fleet member.
type Device struct {
	ID           string
	Name         string
	Location     string
	AssetTag     string
	SerialNumber string
	Profile      Profile

	Status           Status
	ConnectionStatus ConnectionStatus
	Active           bool

	// LastSeen is nil until the device has been heard from.
	LastSeen *time.Time

	// ActivationCodeID is the code that last activated this device.
	ActivationCodeID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Type returns the device type.
func (d Device) Type() DeviceType {
	return typeOf(d.Profile)
}

// Department returns the department for nova-tv devices, or "".
func (d Device) Department() string {
	return departmentOf(d.Profile)
}

// Observed returns the device as readers should see it at now.
// A device not heard from within window is reported offline regardless of
// the last connection status it reported; silent network loss never pushes
// an event, so staleness is decided at query time.
func (d Device) Observed(now time.Time, window time.Duration) Device {
	if d.LastSeen == nil || now.Sub(*d.LastSeen) > window {
		d.ConnectionStatus = ConnectionOffline
	}
	return d
}

// CheckTransition validates an administrative status change.
// pending_activation is write-once: it can neither be entered nor left
// through an administrative change; only redemption leaves it.
func CheckTransition(id string, from, to Status) error {
	if to == StatusPendingActivation || from == StatusPendingActivation {
		return NewInvalidTransitionError(id, from, to)
	}
	return nil
}

type deviceJSON struct {
	ID               string           `json:"id"`
	Type             DeviceType       `json:"type"`
	Name             string           `json:"name"`
	Location         string           `json:"location"`
	AssetTag         string           `json:"assetTag,omitempty"`
	SerialNumber     string           `json:"serialNumber,omitempty"`
	Department       string           `json:"department,omitempty"`
	Status           Status           `json:"status"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	Active           bool             `json:"active"`
	LastSeen         *time.Time       `json:"lastSeen,omitempty"`
	ActivationCodeID string           `json:"activationCodeId,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// MarshalJSON flattens the profile into a type-discriminated object.
func (d Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(deviceJSON{
		ID:               d.ID,
		Type:             d.Type(),
		Name:             d.Name,
		Location:         d.Location,
		AssetTag:         d.AssetTag,
		SerialNumber:     d.SerialNumber,
		Department:       d.Department(),
		Status:           d.Status,
		ConnectionStatus: d.ConnectionStatus,
		Active:           d.Active,
		LastSeen:         d.LastSeen,
		ActivationCodeID: d.ActivationCodeID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	})
}

// DeviceFilter narrows a device listing. The zero value matches everything.
type DeviceFilter struct {
	Type DeviceType
}

// Match reports whether d passes the filter.
func (f DeviceFilter) Match(d Device) bool {
	return f.Type == "" || d.Type() == f.Type
}
