package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the registry behind h
// and returns one message per failure.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.evaluate(ctx, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertDeviceCount:
		return h.assertDeviceCount(ctx, a)
	case AssertDevice:
		return h.assertDevice(ctx, a)
	case AssertDeviceAbsent:
		return h.assertDeviceAbsent(ctx, a)
	case AssertLiveCodes:
		return h.assertLiveCodes(ctx, a)
	case AssertGlobalStatus:
		return h.assertGlobalStatus(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertDeviceCount checks the number of devices, optionally of one type.
func (h *Harness) assertDeviceCount(ctx context.Context, a Assertion) error {
	devices, err := h.reg.List(ctx, fleet.DeviceFilter{Type: fleet.DeviceType(a.DeviceType)})
	if err != nil {
		return err
	}
	if len(devices) != a.Count {
		what := "devices"
		if a.DeviceType != "" {
			what = a.DeviceType + " devices"
		}
		return &AssertionError{
			Type:     AssertDeviceCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", len(devices), what),
		}
	}
	return nil
}

// assertDevice checks the fields of one device as readers see it now.
func (h *Harness) assertDevice(ctx context.Context, a Assertion) error {
	d, err := h.reg.Get(ctx, h.deviceID(a.Device))
	if err != nil {
		return &AssertionError{
			Type:     AssertDevice,
			Expected: fmt.Sprintf("device %s exists", a.Device),
			Actual:   outcomeOf(err),
		}
	}

	var mismatches []string
	if a.Status != "" && string(d.Status) != a.Status {
		mismatches = append(mismatches, fmt.Sprintf("status=%s (want %s)", d.Status, a.Status))
	}
	if a.ConnectionStatus != "" && string(d.ConnectionStatus) != a.ConnectionStatus {
		mismatches = append(mismatches, fmt.Sprintf("connection_status=%s (want %s)", d.ConnectionStatus, a.ConnectionStatus))
	}
	if a.Active != nil && d.Active != *a.Active {
		mismatches = append(mismatches, fmt.Sprintf("active=%t (want %t)", d.Active, *a.Active))
	}
	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertDevice,
			Expected: fmt.Sprintf("device %s to match", a.Device),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

// assertDeviceAbsent checks that a device no longer exists.
func (h *Harness) assertDeviceAbsent(ctx context.Context, a Assertion) error {
	_, err := h.reg.Get(ctx, h.deviceID(a.Device))
	if fleet.IsNotFound(err) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDeviceAbsent,
		Expected: fmt.Sprintf("device %s not found", a.Device),
		Actual:   outcomeOf(err),
	}
}

// assertLiveCodes checks the number of live activation codes.
func (h *Harness) assertLiveCodes(ctx context.Context, a Assertion) error {
	codes, err := h.reg.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(codes) != a.Count {
		return &AssertionError{
			Type:     AssertLiveCodes,
			Expected: fmt.Sprintf("%d live codes", a.Count),
			Actual:   fmt.Sprintf("%d live codes", len(codes)),
		}
	}
	return nil
}

// assertGlobalStatus checks the fleet-wide status.
func (h *Harness) assertGlobalStatus(ctx context.Context, a Assertion) error {
	gs, err := h.reg.GlobalStatus(ctx)
	if err != nil {
		return err
	}
	if string(gs.Status) != a.Status {
		return &AssertionError{
			Type:     AssertGlobalStatus,
			Expected: a.Status,
			Actual:   string(gs.Status),
		}
	}
	return nil
}
