package authgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBanned is an exported constant or variable used by the guard and credential flows.
	// Banned failures unwrap to it; use errors.Is to detect them.
	ErrBanned = errors.New("too many attempts")
	// ErrInvalidCredentials is an exported constant or variable used by the credential flows.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderUnavailable is an exported constant or variable used by the credential flows.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrNoActiveChallenge is an exported constant or variable used by the MFA coordinator.
	ErrNoActiveChallenge = errors.New("no active mfa challenge")
	// ErrMFAVerificationFailed is an exported constant or variable used by the MFA coordinator.
	ErrMFAVerificationFailed = errors.New("mfa verification failed")
	// ErrNoSession is an exported constant or variable used by session-bound operations.
	ErrNoSession = errors.New("no active session")
)

// BannedError reports that an identifier is rate limited. It unwraps to
// ErrBanned and carries the ban horizon so callers can render a countdown.
type BannedError struct {
	Identifier   string
	Until        time.Time
	AttemptCount int
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %s", formatDuration(time.Until(e.Until)))
}

func (e *BannedError) Unwrap() error {
	return ErrBanned
}

// Remaining returns the time left on the ban, never negative.
func (e *BannedError) Remaining() time.Duration {
	if e == nil {
		return 0
	}
	d := time.Until(e.Until)
	if d < 0 {
		return 0
	}
	return d
}
