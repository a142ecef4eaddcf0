package fleet

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DeviceDraft is the device-to-be carried by an activation code.
type DeviceDraft struct {
	Name         string
	Location     string
	AssetTag     string
	SerialNumber string
	Profile      Profile

	// TargetDeviceID, when set, re-activates an existing device instead
	// of creating a new one.
	TargetDeviceID string
}

// NewDeviceDraft builds a draft from loosely typed input, normalizing text
// fields and resolving the profile for the given type.
func NewDeviceDraft(name, location, assetTag, serialNumber string, t DeviceType, department string) (DeviceDraft, error) {
	profile, err := NewProfile(t, normalizeText(department))
	if err != nil {
		return DeviceDraft{}, err
	}
	d := DeviceDraft{
		Name:         name,
		Location:     location,
		AssetTag:     assetTag,
		SerialNumber: serialNumber,
		Profile:      profile,
	}.Normalize()
	return d, d.Validate()
}

// Type returns the device type of the draft.
func (d DeviceDraft) Type() DeviceType {
	return typeOf(d.Profile)
}

// Department returns the department for nova-tv drafts, or "".
func (d DeviceDraft) Department() string {
	return departmentOf(d.Profile)
}

// Normalize trims and NFC-normalizes the free-text fields.
// Operators type names on many keyboards; composed and decomposed forms
// of the same name must sort and compare equal.
func (d DeviceDraft) Normalize() DeviceDraft {
	d.Name = normalizeText(d.Name)
	d.Location = normalizeText(d.Location)
	d.AssetTag = normalizeText(d.AssetTag)
	d.SerialNumber = normalizeText(d.SerialNumber)
	d.TargetDeviceID = strings.TrimSpace(d.TargetDeviceID)
	if tv, ok := d.Profile.(TVProfile); ok {
		tv.Department = normalizeText(tv.Department)
		d.Profile = tv
	}
	return d
}

// Validate checks the required fields of a draft.
func (d DeviceDraft) Validate() error {
	if d.Name == "" {
		return NewValidationError("name is required")
	}
	if d.Location == "" {
		return NewValidationError("location is required")
	}
	if d.Profile == nil {
		return NewValidationError("type is required")
	}
	return nil
}

type draftJSON struct {
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	AssetTag       string     `json:"assetTag,omitempty"`
	SerialNumber   string     `json:"serialNumber,omitempty"`
	Type           DeviceType `json:"type"`
	Department     string     `json:"department,omitempty"`
	TargetDeviceID string     `json:"targetDeviceId,omitempty"`
}

// MarshalJSON flattens the profile into a type-discriminated object.
func (d DeviceDraft) MarshalJSON() ([]byte, error) {
	return json.Marshal(draftJSON{
		Name:           d.Name,
		Location:       d.Location,
		AssetTag:       d.AssetTag,
		SerialNumber:   d.SerialNumber,
		Type:           d.Type(),
		Department:     d.Department(),
		TargetDeviceID: d.TargetDeviceID,
	})
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (d *DeviceDraft) UnmarshalJSON(data []byte) error {
	var raw draftJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	profile, err := NewProfile(raw.Type, raw.Department)
	if err != nil {
		return err
	}
	*d = DeviceDraft{
		Name:           raw.Name,
		Location:       raw.Location,
		AssetTag:       raw.AssetTag,
		SerialNumber:   raw.SerialNumber,
		Profile:        profile,
		TargetDeviceID: raw.TargetDeviceID,
	}
	return nil
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
