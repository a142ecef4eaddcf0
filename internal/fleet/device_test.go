package fleet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func seenAt(t time.Time) *time.Time { return &t }

func TestDevice_Observed(t *testing.T) {
	window := 5 * time.Minute
	d := Device{ID: "d-1", ConnectionStatus: ConnectionOnline, LastSeen: seenAt(t0)}

	assert.Equal(t, ConnectionOnline, d.Observed(t0, window).ConnectionStatus)
	assert.Equal(t, ConnectionOnline, d.Observed(t0.Add(window), window).ConnectionStatus, "exactly at the window is still fresh")
	assert.Equal(t, ConnectionOffline, d.Observed(t0.Add(window+time.Millisecond), window).ConnectionStatus)

	// Observed never mutates the receiver.
	assert.Equal(t, ConnectionOnline, d.ConnectionStatus)
}

func TestDevice_ObservedNeverSeen(t *testing.T) {
	d := Device{ID: "d-1", ConnectionStatus: ConnectionOnline}
	assert.Equal(t, ConnectionOffline, d.Observed(t0, time.Hour).ConnectionStatus)
}

func TestDevice_ObservedReportedOffline(t *testing.T) {
	d := Device{ID: "d-1", ConnectionStatus: ConnectionOffline, LastSeen: seenAt(t0)}
	assert.Equal(t, ConnectionOffline, d.Observed(t0, time.Hour).ConnectionStatus)
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusOnline, StatusMaintenance, true},
		{StatusMaintenance, StatusOffline, true},
		{StatusOffline, StatusOnline, true},
		{StatusOnline, StatusOnline, true},
		{StatusOnline, StatusPendingActivation, false},
		{StatusPendingActivation, StatusOnline, false},
		{StatusPendingActivation, StatusPendingActivation, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition("d-1", tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsInvalidTransition(err))
			}
		})
	}
}

func TestDeviceFilter_Match(t *testing.T) {
	kiosk := Device{Profile: KioskProfile{}}
	tv := Device{Profile: TVProfile{Department: "Sales"}}

	assert.True(t, DeviceFilter{}.Match(kiosk))
	assert.True(t, DeviceFilter{}.Match(tv))
	assert.True(t, DeviceFilter{Type: DeviceTypeNovaTV}.Match(tv))
	assert.False(t, DeviceFilter{Type: DeviceTypeNovaTV}.Match(kiosk))
}

func TestDevice_MarshalJSON(t *testing.T) {
	d := Device{
		ID:               "d-1",
		Name:             "Lobby TV",
		Location:         "HQ-1F",
		Profile:          TVProfile{Department: "Sales"},
		Status:           StatusOnline,
		ConnectionStatus: ConnectionOnline,
		Active:           true,
		LastSeen:         seenAt(t0),
		ActivationCodeID: "a-1",
		CreatedAt:        t0,
		UpdatedAt:        t0,
	}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "d-1",
		"type": "nova-tv",
		"name": "Lobby TV",
		"location": "HQ-1F",
		"department": "Sales",
		"status": "online",
		"connectionStatus": "online",
		"active": true,
		"lastSeen": "2026-01-05T09:00:00Z",
		"activationCodeId": "a-1",
		"createdAt": "2026-01-05T09:00:00Z",
		"updatedAt": "2026-01-05T09:00:00Z"
	}`, string(data))
}
