package authgate

import "context"

// ProviderError is a typed failure returned by an identity provider.
// Code, when the provider supplies one, is preferred over Message for
// classifying whether a failure counts as a credential guess.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// AuthResponse is the provider's answer to a credential exchange. A UserID
// without a Session signals that a second factor is required before a
// session is issued.
type AuthResponse struct {
	Session *Session
	UserID  string
}

// OTPOptions controls a magic-link request.
type OTPOptions struct {
	// AllowCreate asks the provider to create the account if the address
	// is unknown. The provider must not reveal which case occurred.
	AllowCreate bool
	Metadata    map[string]any
}

// UserUpdate is a partial account update. Nil fields are left untouched.
type UserUpdate struct {
	Email    *string
	Password *string
	Metadata map[string]any
}

// VerifyParams identifies the challenge a code is submitted against.
type VerifyParams struct {
	FactorID    string
	ChallengeID string
	Code        string
}

// IdentityProvider is the contract the host application implements against
// its backend identity service. Methods return ProviderError (possibly
// wrapped) for provider-level rejections and ordinary transport errors for
// infrastructure failures; the two are classified differently by the
// credential flow.
//
// Callers must treat every method as a suspension point. Implementations
// must be safe for concurrent use.
type IdentityProvider interface {
	// SignInWithPassword exchanges credentials for a session. A response
	// carrying a UserID but no Session means a second factor is required.
	SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error)

	// SignUp creates an account. metadata is attached to the new account.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error)

	// SignInWithOTP requests a magic link. It must return identically for
	// known and unknown addresses.
	SignInWithOTP(ctx context.Context, email string, opts OTPOptions) error

	// CurrentSession returns the persisted session, or nil when there is
	// none. Called once at startup by the session tracker.
	CurrentSession(ctx context.Context) (*Session, error)

	// OnSessionChange registers a notification callback and returns its
	// unsubscribe handle. Notifications must be delivered in order.
	OnSessionChange(fn func(SessionChange)) (unsubscribe func())

	// UpdateUser applies a partial account update and returns the
	// refreshed session.
	UpdateUser(ctx context.Context, update UserUpdate) (*Session, error)

	// ResetPasswordForEmail triggers a reset email. It must appear to
	// succeed regardless of whether the address is registered.
	ResetPasswordForEmail(ctx context.Context, email string) error

	// SignOut clears the provider-side session.
	SignOut(ctx context.Context) error

	// ListFactors returns the second-factor records on the current
	// account.
	ListFactors(ctx context.Context) ([]Factor, error)

	// ChallengeFactor opens a challenge against the given factor and
	// returns its challenge ID.
	ChallengeFactor(ctx context.Context, factorID string) (string, error)

	// VerifyFactor submits a code against an open challenge and returns
	// the upgraded session on success.
	VerifyFactor(ctx context.Context, params VerifyParams) (*Session, error)

	// DeleteUser removes the account via a privileged backend call
	// authorized by the given access token.
	DeleteUser(ctx context.Context, accessToken string) error
}
