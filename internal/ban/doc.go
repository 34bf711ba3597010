// Package ban derives and merges ban verdicts from failed-attempt
// timestamps.
//
// # Design
//
// All functions are pure: they operate on timestamps already fetched from
// the attempt store and on a caller-supplied clock value. The merge of the
// local verdict with the remote advisory verdict lives here so it can be
// table-tested without any network or Redis in the loop.
//
// # What this package must NOT do
//
//   - Perform I/O of any kind.
//   - Import authgate or any sibling package.
package ban
