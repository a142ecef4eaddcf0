// Package registry is the device activation and fleet-status service.
//
// A Registry ties together the pieces that operate on the store:
//
//   - activation codes: create, list live codes, revoke, sweep expired
//   - redemption: consume a code exactly once and materialize its device
//   - devices: get, list, enable/disable, status changes, heartbeats, delete
//   - the single fleet-wide global status, with in-process subscribers
//   - the fleet summary read by dashboards
//
// Concurrency model:
//
// Every operation may be called from any goroutine. Mutations serialize
// per key: redemption and revocation per normalized code, device updates
// per device id. There is no registry-wide lock. Inside the critical
// section every mutation runs in a single store transaction, and the
// redemption compare-and-swap in the store is the final guard against
// double use.
//
// Reads never take a key lock and run against the store's reader pool.
//
// Time:
//
// The registry reads wall time from an injected Clock, truncated to the
// millisecond precision the store keeps. Tests use testutil.FakeClock.
package registry
