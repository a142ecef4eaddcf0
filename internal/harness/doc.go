// Package harness runs fleet scenarios against a real registry.
//
// A scenario is a YAML file listing registry operations (create an
// activation code, redeem it, change a device's status, advance the
// clock...) with the outcome each step must have, followed by assertions
// over the final state. Every run uses:
//
//   - a fresh in-memory store
//   - a fake clock starting at testutil.Epoch
//   - sequential ids ("id-0001", "id-0002", ...)
//
// so two runs of the same scenario produce the same trace. Activation code
// values stay random; scenarios refer to codes and devices through
// aliases, and traces never print code values.
//
// # Trace format
//
// Each step produces one trace line:
//
//	03 redeem lobby -> ok device=id-0002 status=online connection=online
//
// step number, operation, subject alias, outcome ("ok" or an error code),
// and operation-specific detail. Golden files under testdata/golden hold
// the expected trace of each scenario; regenerate them with:
//
//	go test ./internal/harness -update
package harness
