package fleet

import "fmt"

// Profile holds the fields that exist only for one device type.
// The set of implementations is closed: KioskProfile and TVProfile.
type Profile interface {
	DeviceType() DeviceType
	isProfile()
}

// KioskProfile is the profile of a kiosk. Kiosks carry no extra fields.
type KioskProfile struct{}

// DeviceType implements Profile.
func (KioskProfile) DeviceType() DeviceType { return DeviceTypeKiosk }

func (KioskProfile) isProfile() {}

// TVProfile is the profile of a nova-tv display.
type TVProfile struct {
	// Department is the optional owning department shown on the display.
	Department string
}

// DeviceType implements Profile.
func (TVProfile) DeviceType() DeviceType { return DeviceTypeNovaTV }

func (TVProfile) isProfile() {}

// NewProfile builds the profile for a device type.
// A department is only accepted for nova-tv devices.
func NewProfile(t DeviceType, department string) (Profile, error) {
	switch t {
	case DeviceTypeKiosk:
		if department != "" {
			return nil, NewValidationError("department is only valid for nova-tv devices")
		}
		return KioskProfile{}, nil
	case DeviceTypeNovaTV:
		return TVProfile{Department: department}, nil
	case "":
		return nil, NewValidationError("type is required")
	default:
		return nil, NewValidationError(fmt.Sprintf("unknown device type %q", t))
	}
}

// departmentOf returns the department of a TV profile, or "".
func departmentOf(p Profile) string {
	if tv, ok := p.(TVProfile); ok {
		return tv.Department
	}
	return ""
}

// typeOf returns the device type of p, or "" for a nil profile.
func typeOf(p Profile) DeviceType {
	if p == nil {
		return ""
	}
	return p.DeviceType()
}
