// Package advisory wraps the identity provider's remote ban signal.
//
// The remote check exists because a purely client-side counter is trivially
// bypassed (clear storage, switch device); the backend adds a weak but real
// backstop. It must stay advisory: every failure here degrades to "no
// additional signal" and is logged, never surfaced, so the backend is not a
// hard dependency of the sign-in path.
//
// Status checks are throttled locally since guards may be consulted on
// every keystroke of an email field.
package advisory
