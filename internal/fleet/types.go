package fleet

import "fmt"

// DeviceType identifies the hardware family of a device.
// Immutable once a device is created.
type DeviceType string

const (
	DeviceTypeKiosk  DeviceType = "kiosk"
	DeviceTypeNovaTV DeviceType = "nova-tv"
)

// DeviceTypes lists every valid device type in display order.
var DeviceTypes = []DeviceType{DeviceTypeKiosk, DeviceTypeNovaTV}

// ParseDeviceType validates a device type string.
func ParseDeviceType(s string) (DeviceType, error) {
	for _, t := range DeviceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown device type %q", s))
}

// Status is the administrative lifecycle state of a device.
type Status string

const (
	StatusPendingActivation Status = "pending_activation"
	StatusOnline            Status = "online"
	StatusOffline           Status = "offline"
	StatusMaintenance       Status = "maintenance"
)

// Statuses lists every valid device status.
var Statuses = []Status{StatusPendingActivation, StatusOnline, StatusOffline, StatusMaintenance}

// ParseStatus validates a device status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown device status %q", s))
}

// ConnectionStatus is the last observed network reachability of a device.
// It is independent of the administrative Status.
type ConnectionStatus string

const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
)

// ConnectionStatuses lists every valid connection status.
var ConnectionStatuses = []ConnectionStatus{ConnectionOnline, ConnectionOffline}

// ParseConnectionStatus validates a connection status string.
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	for _, c := range ConnectionStatuses {
		if string(c) == s {
			return c, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown connection status %q", s))
}

// OperationalStatus is the fleet-wide flag shown on every display.
type OperationalStatus string

const (
	OperationalOpen        OperationalStatus = "open"
	OperationalClosed      OperationalStatus = "closed"
	OperationalMeeting     OperationalStatus = "meeting"
	OperationalBRB         OperationalStatus = "brb"
	OperationalLunch       OperationalStatus = "lunch"
	OperationalUnavailable OperationalStatus = "unavailable"
)

// OperationalStatuses lists every valid global status value.
var OperationalStatuses = []OperationalStatus{
	OperationalOpen,
	OperationalClosed,
	OperationalMeeting,
	OperationalBRB,
	OperationalLunch,
	OperationalUnavailable,
}

// ParseOperationalStatus validates a global status string.
func ParseOperationalStatus(s string) (OperationalStatus, error) {
	for _, o := range OperationalStatuses {
		if string(o) == s {
			return o, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown global status %q", s))
}
