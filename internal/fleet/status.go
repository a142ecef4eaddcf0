package fleet

import "time"

// GlobalStatus is the single fleet-wide operational flag.
type GlobalStatus struct {
	Status    OperationalStatus `json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// DefaultGlobalStatus is reported before any operator has set a value.
var DefaultGlobalStatus = GlobalStatus{Status: OperationalOpen}
