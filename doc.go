// Package authgate orchestrates client-side authentication against a
// backend identity provider: password, magic-link and multi-factor flows,
// session lifecycle tracking, and a Redis-backed brute-force guard wrapped
// around every credentialed operation.
//
// The package is a library, not a server. The host application implements
// [IdentityProvider] against its identity backend, builds one [Service]
// through [Builder.Build], and passes it by injection; Service methods are
// safe to call from multiple goroutines.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Service], [Builder],
// [Config], the [BruteForceGuard], [SessionTracker] and [MfaCoordinator]
// components, and value types (Session, SignInResult, BanState). Attempt
// persistence, ban derivation, the remote advisory client and audit
// dispatch live under internal/ and are never exported.
//
// # Failure contract
//
// Operations that decide authentication (sign-in, verify) return typed
// errors. Best-effort paths (attempt persistence, the remote ban advisory,
// audit dispatch) swallow their failures, log them, and never block or
// fail the primary operation.
package authgate
