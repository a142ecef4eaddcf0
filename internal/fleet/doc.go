// Package fleet defines the domain model of the kiosk and TV fleet registry.
//
// The model has three kinds of records:
//   - ActivationCode: a short-lived, single-use token carrying a DeviceDraft
//   - Device: a durable fleet member materialized by redeeming a code
//   - GlobalStatus: the single fleet-wide operational flag
//
// Per-type device fields are a closed variant (Profile). A kiosk has no
// type-specific fields; a nova-tv carries an optional department.
//
// Everything in this package is pure: no I/O, no clocks. Callers pass
// "now" explicitly so that expiry and freshness are decided by whoever
// owns the time source.
package fleet
