// Package attempts persists per-identifier failed-attempt timestamps in
// Redis sorted sets.
//
// # Design
//
// One key per identifier ("ba:<identifier>"), member and score both the
// attempt time in milliseconds since epoch. Every read prunes members
// outside the rolling attempt window so storage stays bounded even for
// identifiers that are never explicitly cleared. Keys carry a TTL of
// window+ban so abandoned identifiers expire on their own.
//
// Persistence is best-effort local state, not a correctness requirement:
// backend failures are swallowed and logged, never returned to callers.
// Concurrent writers (two tabs, a double-click) race last-write-wins;
// the remote advisory signal is the cross-device authority.
package attempts
