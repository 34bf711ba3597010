// Package internal groups the private building blocks of authgate.
//
// # Sub-packages
//
//   - attempts — redis-backed failed-attempt records per identifier
//   - ban — pure ban derivation and verdict merging
//   - advisory — best-effort remote ban advisory client
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
