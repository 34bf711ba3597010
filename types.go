package authgate

import (
	"time"

	"github.com/procyonhq/authgate/internal/ban"
)

// AssuranceLevel is the authenticator assurance level of a session. AAL1
// means a single factor was presented, AAL2 means a verified second factor
// was presented as well.
type AssuranceLevel uint8

const (
	// AssuranceUnknown means the provider did not report a level.
	AssuranceUnknown AssuranceLevel = iota
	// AAL1 is a single-factor session.
	AAL1
	// AAL2 is a session that completed second-factor verification.
	AAL2
)

func (l AssuranceLevel) String() string {
	switch l {
	case AAL1:
		return "aal1"
	case AAL2:
		return "aal2"
	default:
		return "unknown"
	}
}

// Session is the currently authenticated principal as reported by the
// identity provider. Sessions are replaced wholesale on every provider
// notification and never mutated in place.
type Session struct {
	UserID         string
	Email          string
	AccessToken    string
	AssuranceLevel AssuranceLevel

	// Metadata carries provider-supplied account fields, including the
	// has_password flag written at sign-up.
	Metadata map[string]any
}

// Factor is a second-factor record on the user's account.
type Factor struct {
	ID       string
	Type     string
	Verified bool
}

// MfaChallenge is an outstanding second-factor verification. At most one
// challenge is outstanding per coordinator.
type MfaChallenge struct {
	FactorID    string
	ChallengeID string

	// CorrelationID ties the challenge's audit events together. It is
	// generated locally and never sent to the provider.
	CorrelationID string
	IssuedAt      time.Time
}

// AttemptKind labels an authentication attempt for audit purposes. It has
// no effect on ban policy.
type AttemptKind string

const (
	// AttemptSignIn is an exported constant or variable used by the guard and audit trail.
	AttemptSignIn AttemptKind = "signin"
	// AttemptSignUp is an exported constant or variable used by the guard and audit trail.
	AttemptSignUp AttemptKind = "signup"
	// AttemptResetPassword is an exported constant or variable used by the guard and audit trail.
	AttemptResetPassword AttemptKind = "reset_password"
)

// BanState is the derived ban verdict for one identifier.
type BanState = ban.State

// SignInResult is the outcome of a credential exchange. Exactly one of the
// following shapes applies: a full Session, MFARequired (challenge already
// issued, complete it via the MFA coordinator), or MFAUpgradeRequired (a
// usable AAL1 session exists but the account has a verified second factor
// on file and callers should step up).
type SignInResult struct {
	Session            *Session
	MFARequired        bool
	MFAUpgradeRequired bool

	// AvailableFactors is populated alongside MFARequired or
	// MFAUpgradeRequired so callers can offer a factor choice.
	AvailableFactors []Factor
}

// SignUpResult is the outcome of account creation. Providers that require
// email confirmation return a UserID without a Session.
type SignUpResult struct {
	Session *Session
	UserID  string
}

// ChangeKind classifies a provider session-change notification.
type ChangeKind string

const (
	// ChangeInitialSession is an exported constant or variable used by the session tracker.
	ChangeInitialSession ChangeKind = "initial_session"
	// ChangeSignedIn is an exported constant or variable used by the session tracker.
	ChangeSignedIn ChangeKind = "signed_in"
	// ChangeSignedOut is an exported constant or variable used by the session tracker.
	ChangeSignedOut ChangeKind = "signed_out"
	// ChangeTokenRefreshed is an exported constant or variable used by the session tracker.
	ChangeTokenRefreshed ChangeKind = "token_refreshed"
	// ChangeUserUpdated is an exported constant or variable used by the session tracker.
	ChangeUserUpdated ChangeKind = "user_updated"
	// ChangeChallengeVerified is an exported constant or variable used by the session tracker.
	// It clears any outstanding MFA challenge as a side effect.
	ChangeChallengeVerified ChangeKind = "challenge_verified"
)

// SessionChange is one notification from the provider's session stream.
type SessionChange struct {
	Kind    ChangeKind
	Session *Session
}

// metadataKeyHasPassword marks accounts created with a password, as
// opposed to magic-link-only accounts.
const metadataKeyHasPassword = "has_password"
