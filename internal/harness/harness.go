package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/kioskfleet/internal/codegen"
	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/registry"
	"github.com/roach88/kioskfleet/internal/store"
	"github.com/roach88/kioskfleet/internal/testutil"
)

// Harness executes one scenario against a registry.
type Harness struct {
	reg   *registry.Registry
	clock *testutil.FakeClock

	codes   map[string]fleet.ActivationCode // alias -> issued code
	devices map[string]string               // alias -> device id
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// A step whose outcome differs from its expectation is recorded as an
// error and the run continues, so the trace always covers every step.
// The returned error is reserved for setup failures.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	length := scenario.CodeLength
	if length == 0 {
		length = fleet.DefaultCodeLength
	}
	gen, err := codegen.New(length)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewFakeClock()
	reg, err := registry.New(st,
		registry.WithClock(clock),
		registry.WithIDGenerator(testutil.NewSequenceIDGenerator("id")),
		registry.WithCodeGenerator(gen),
		registry.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		reg:     reg,
		clock:   clock,
		codes:   make(map[string]fleet.ActivationCode),
		devices: make(map[string]string),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.executeStep(ctx, step)
		event.Step = i + 1
		result.AddTrace(event)

		want := step.Expect
		if want == "" {
			want = OutcomeOK
		}
		if event.Outcome != want {
			result.AddError(fmt.Sprintf("step %d (%s %s): expected %s, got %s",
				event.Step, step.Op, event.Subject, want, event.Outcome))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and describes its outcome.
func (h *Harness) executeStep(ctx context.Context, step Step) TraceEvent {
	event := TraceEvent{Op: step.Op}
	var detail string
	var err error

	switch step.Op {
	case OpCreateActivation:
		event.Subject = step.As
		detail, err = h.createActivation(ctx, step)
	case OpRedeem:
		event.Subject = step.Code
		if step.Parallel > 1 {
			detail, err = h.redeemParallel(ctx, step)
		} else {
			detail, err = h.redeem(ctx, step)
		}
	case OpRevoke:
		event.Subject = step.Code
		_, err = h.reg.Revoke(ctx, h.activationID(step.Code))
	case OpSetStatus:
		event.Subject = step.Device
		var d fleet.Device
		d, err = h.reg.SetStatus(ctx, h.deviceID(step.Device), fleet.Status(step.Status))
		detail = "status=" + string(d.Status)
	case OpSetActive:
		event.Subject = step.Device
		var d fleet.Device
		d, err = h.reg.SetActive(ctx, h.deviceID(step.Device), *step.Active)
		detail = fmt.Sprintf("active=%t", d.Active)
	case OpHeartbeat:
		event.Subject = step.Device
		var d fleet.Device
		d, err = h.reg.RecordHeartbeat(ctx, h.deviceID(step.Device), fleet.ConnectionStatus(step.Status))
		detail = "connection=" + string(d.ConnectionStatus)
	case OpDeleteDevice:
		event.Subject = step.Device
		err = h.reg.Delete(ctx, h.deviceID(step.Device))
	case OpAdvance:
		d, _ := time.ParseDuration(step.Duration)
		now := h.clock.Advance(d)
		detail = "now=+" + now.Sub(testutil.Epoch).String()
	case OpSetGlobalStatus:
		var gs fleet.GlobalStatus
		gs, err = h.reg.SetGlobalStatus(ctx, fleet.OperationalStatus(step.Status))
		detail = "status=" + string(gs.Status)
	case OpSummary:
		detail, err = h.summary(ctx)
	}

	if err != nil {
		event.Outcome = outcomeOf(err)
		return event
	}
	event.Outcome = OutcomeOK
	event.Detail = detail
	return event
}

func (h *Harness) createActivation(ctx context.Context, step Step) (string, error) {
	draft, err := fleet.NewDeviceDraft(step.Name, step.Location, step.AssetTag, step.Serial,
		fleet.DeviceType(step.Type), step.Department)
	if err != nil {
		return "", err
	}
	if step.Target != "" {
		draft.TargetDeviceID = h.deviceID(step.Target)
	}

	a, err := h.reg.CreateActivation(ctx, draft)
	if err != nil {
		return "", err
	}
	if step.As != "" {
		h.codes[step.As] = a
	}
	return fmt.Sprintf("id=%s type=%s ttl=%s", a.ID, a.Draft.Type(), a.ExpiresAt.Sub(a.CreatedAt)), nil
}

func (h *Harness) redeem(ctx context.Context, step Step) (string, error) {
	d, err := h.reg.Redeem(ctx, h.codeValue(step.Code), registry.RedeemExtra{SerialNumber: step.Serial})
	if err != nil {
		return "", err
	}
	if step.As != "" {
		h.devices[step.As] = d.ID
	}
	return describeDevice(d), nil
}

// redeemParallel races step.Parallel redemptions of the same code.
// It succeeds only if exactly one caller won and every other caller saw
// ALREADY_USED.
func (h *Harness) redeemParallel(ctx context.Context, step Step) (string, error) {
	code := h.codeValue(step.Code)
	extra := registry.RedeemExtra{SerialNumber: step.Serial}

	var wg sync.WaitGroup
	devices := make([]fleet.Device, step.Parallel)
	errs := make([]error, step.Parallel)
	start := make(chan struct{})
	for i := 0; i < step.Parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			devices[i], errs[i] = h.reg.Redeem(ctx, code, extra)
		}(i)
	}
	close(start)
	wg.Wait()

	var winner *fleet.Device
	outcomes := make(map[string]int)
	for i, err := range errs {
		if err == nil {
			winner = &devices[i]
		}
		outcomes[outcomeOf(err)]++
	}
	if outcomes[OutcomeOK] != 1 || outcomes[string(fleet.ErrCodeAlreadyUsed)] != step.Parallel-1 {
		return "", fmt.Errorf("race: %s", formatCounts(outcomes))
	}
	if step.As != "" {
		h.devices[step.As] = winner.ID
	}
	return describeDevice(*winner) + " " + formatCounts(outcomes), nil
}

func (h *Harness) summary(ctx context.Context) (string, error) {
	s, err := h.reg.Summary(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("total=%d kiosk=%d nova-tv=%d online=%d offline=%d active=%d live_codes=%d",
		s.Total,
		s.ByType[fleet.DeviceTypeKiosk],
		s.ByType[fleet.DeviceTypeNovaTV],
		s.ByConnectionStatus[fleet.ConnectionOnline],
		s.ByConnectionStatus[fleet.ConnectionOffline],
		s.Active,
		s.LiveActivationCodes), nil
}

// codeValue resolves a code alias to the issued code value.
func (h *Harness) codeValue(name string) string {
	if a, ok := h.codes[name]; ok {
		return a.Code
	}
	return name
}

// activationID resolves a code alias to the activation id.
func (h *Harness) activationID(name string) string {
	if a, ok := h.codes[name]; ok {
		return a.ID
	}
	return name
}

// deviceID resolves a device alias to the device id.
func (h *Harness) deviceID(name string) string {
	if id, ok := h.devices[name]; ok {
		return id
	}
	return name
}

func describeDevice(d fleet.Device) string {
	return fmt.Sprintf("device=%s status=%s connection=%s", d.ID, d.Status, d.ConnectionStatus)
}

// outcomeOf names the outcome of an operation: "ok", a registry error
// code, or "ERROR" for anything else.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := fleet.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

// formatCounts renders outcome counts in a stable order.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
