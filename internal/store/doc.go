// Package store provides SQLite-backed durable storage for the fleet registry.
//
// The store holds three logical tables:
//   - activation_codes: pending and historical activation codes
//   - devices: durable fleet members
//   - global_status: a single row (id = 1) with the fleet-wide flag
//
// # Critical Patterns
//
// Single-Use Codes:
//   - UNIQUE(code) constraint; a code value is issued at most once
//   - Redemption claims a code with a conditional UPDATE
//     (used = 0 AND revoked_at IS NULL AND expires_at > now) inside the
//     same transaction that creates the device, so the flip and the device
//     row commit or roll back together
//
// Deterministic Listings:
//   - Every listing has a total order with id COLLATE BINARY as the
//     final tie-breaker
//
// Time:
//   - Timestamps are INTEGER unix milliseconds (UTC)
//   - "now" is always passed in by the caller; the store never reads a clock
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - Writer pool: one connection, BEGIN IMMEDIATE transactions
//   - Reader pool: query_only connections; readers never wait on the writer
package store
