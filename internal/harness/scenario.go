package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// Scenario is one fleet scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// CodeLength overrides the activation code length (default 6).
	CodeLength int `yaml:"code_length,omitempty"`

	// Steps run in order against the registry.
	Steps []Step `yaml:"steps"`

	// Assertions check the final state after all steps ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is a single registry operation.
// Which fields are used depends on Op.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// As binds the created activation code (create_activation) or the
	// activated device (redeem) to an alias.
	As string `yaml:"as,omitempty"`

	// Code names an activation code alias. Names that are not aliases are
	// used literally: as a code value by redeem, as an id by revoke.
	Code string `yaml:"code,omitempty"`

	// Device names a device alias, or a literal device id.
	Device string `yaml:"device,omitempty"`

	// Draft fields (create_activation).
	Name       string `yaml:"name,omitempty"`
	Location   string `yaml:"location,omitempty"`
	AssetTag   string `yaml:"asset_tag,omitempty"`
	Serial     string `yaml:"serial,omitempty"` // also the device-reported serial for redeem
	Type       string `yaml:"type,omitempty"`
	Department string `yaml:"department,omitempty"`
	Target     string `yaml:"target,omitempty"` // device alias to re-activate

	// Status is the new status (set_status, set_global_status) or the
	// reported connection status (heartbeat).
	Status string `yaml:"status,omitempty"`

	// Active is the new administrative flag (set_active).
	Active *bool `yaml:"active,omitempty"`

	// Duration is how far to move the clock (advance), e.g. "59m".
	Duration string `yaml:"duration,omitempty"`

	// Parallel runs a redeem from this many goroutines at once.
	Parallel int `yaml:"parallel,omitempty"`

	// Expect is the required outcome: "ok" (the default) or an error code
	// such as "ALREADY_USED".
	Expect string `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpCreateActivation = "create_activation"
	OpRedeem           = "redeem"
	OpRevoke           = "revoke"
	OpSetStatus        = "set_status"
	OpSetActive        = "set_active"
	OpHeartbeat        = "heartbeat"
	OpDeleteDevice     = "delete_device"
	OpAdvance          = "advance"
	OpSetGlobalStatus  = "set_global_status"
	OpSummary          = "summary"
)

// OutcomeOK is the outcome of a step that succeeded.
const OutcomeOK = "ok"

// Assertion checks the final registry state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Device is a device alias (device, device_absent).
	Device string `yaml:"device,omitempty"`

	// DeviceType narrows device_count to one type.
	DeviceType string `yaml:"device_type,omitempty"`

	// Count is the expected number (device_count, live_codes).
	Count int `yaml:"count"`

	// Expected device fields (device) or global status (global_status).
	// Empty fields are not checked.
	Status           string `yaml:"status,omitempty"`
	ConnectionStatus string `yaml:"connection_status,omitempty"`
	Active           *bool  `yaml:"active,omitempty"`
}

// Assertion types.
const (
	AssertDeviceCount  = "device_count"
	AssertDevice       = "device"
	AssertDeviceAbsent = "device_absent"
	AssertLiveCodes    = "live_codes"
	AssertGlobalStatus = "global_status"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.CodeLength != 0 && (s.CodeLength < fleet.MinCodeLength || s.CodeLength > fleet.MaxCodeLength) {
		return fmt.Errorf("code_length must be between %d and %d", fleet.MinCodeLength, fleet.MaxCodeLength)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks the fields required by the step's operation.
func validateStep(index int, s *Step) error {
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, s.Op)
		}
		return nil
	}

	var err error
	switch s.Op {
	case OpCreateActivation:
		err = require("type", s.Type)
	case OpRedeem:
		err = require("code", s.Code)
		if err == nil && s.Parallel < 0 {
			err = fmt.Errorf("steps[%d]: parallel must be non-negative", index)
		}
	case OpRevoke:
		err = require("code", s.Code)
	case OpSetStatus, OpHeartbeat:
		if err = require("device", s.Device); err == nil {
			err = require("status", s.Status)
		}
	case OpSetActive:
		if err = require("device", s.Device); err == nil && s.Active == nil {
			err = fmt.Errorf("steps[%d]: active is required for %s", index, s.Op)
		}
	case OpDeleteDevice:
		err = require("device", s.Device)
	case OpAdvance:
		if err = require("duration", s.Duration); err == nil {
			if _, perr := time.ParseDuration(s.Duration); perr != nil {
				err = fmt.Errorf("steps[%d]: invalid duration: %w", index, perr)
			}
		}
	case OpSetGlobalStatus:
		err = require("status", s.Status)
	case OpSummary:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return err
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertDeviceCount, AssertLiveCodes:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertDevice, AssertDeviceAbsent:
		if a.Device == "" {
			return fmt.Errorf("assertions[%d]: device is required for %s", index, a.Type)
		}
	case AssertGlobalStatus:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for global_status", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
