package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Credential flows. Every operation returns typed errors rather than
// panicking so callers can render outcomes directly. The guard gates only
// the password sign-in path; magic links and sign-up are not
// credential-guessing surfaces in the same way.

// SignIn describes the signin operation and its observable behavior.
//
// SignIn checks the guard before contacting the provider: a banned
// identifier gets a BannedError and the provider is never called. Provider
// failures are classified so infrastructure outages do not count as
// attempts; when a counted failure crosses the ban threshold the returned
// error is the fresh BannedError rather than the credential error. A
// response with a user but no session means a second factor is required:
// a challenge is issued and the result carries MFARequired. A session at
// AAL1 for an account holding a verified second factor carries
// MFAUpgradeRequired so the caller can step up.
func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	if s == nil || s.provider == nil {
		return SignInResult{}, ErrProviderUnavailable
	}

	status := s.guard.CheckStatus(ctx, email)
	if status.Banned {
		s.metricInc(MetricSignInBanned)
		banErr := &BannedError{
			Identifier:   normalizeIdentifier(email),
			Until:        status.BannedUntil,
			AttemptCount: status.AttemptCount,
		}
		s.emitAudit(ctx, auditEventSignInBanned, false, email, "", AttemptSignIn, banErr, nil)
		return SignInResult{}, banErr
	}

	resp, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return SignInResult{}, s.signInFailed(ctx, email, err)
	}
	if resp == nil || (resp.Session == nil && resp.UserID == "") {
		s.metricInc(MetricSignInFailure)
		s.emitAudit(ctx, auditEventSignInFailure, false, email, "", AttemptSignIn, ErrProviderUnavailable, nil)
		return SignInResult{}, fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}

	if resp.Session == nil {
		// User identified, no session issued: a second factor stands
		// between us and the session.
		return s.signInNeedsMFA(ctx, email, resp.UserID)
	}

	s.guard.LogOutcome(ctx, email, AttemptSignIn, true)
	s.metricInc(MetricSignInSuccess)
	s.emitAudit(ctx, auditEventSignInSuccess, true, email, resp.Session.UserID, AttemptSignIn, nil, nil)

	if sessionAssurance(resp.Session) == AAL1 {
		if verified := s.verifiedFactors(ctx); len(verified) > 0 {
			s.metricInc(MetricMFAUpgradeRequired)
			return SignInResult{
				Session:            resp.Session,
				MFAUpgradeRequired: true,
				AvailableFactors:   verified,
			}, nil
		}
	}

	return SignInResult{Session: resp.Session}, nil
}

func (s *Service) signInFailed(ctx context.Context, email string, err error) error {
	credential := isCredentialFailure(err)

	s.metricInc(MetricSignInFailure)
	s.emitAudit(ctx, auditEventSignInFailure, false, email, "", AttemptSignIn, err, func() map[string]string {
		return map[string]string{"counted": fmt.Sprint(credential)}
	})

	if !credential {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.guard.LogOutcome(ctx, email, AttemptSignIn, false)

	// The attempt just recorded may have crossed the threshold; a fresh
	// ban overrides the credential error so the caller shows the
	// countdown instead of inviting another guess.
	if status := s.guard.CheckStatus(ctx, email); status.Banned {
		s.metricInc(MetricSignInBanned)
		return &BannedError{
			Identifier:   normalizeIdentifier(email),
			Until:        status.BannedUntil,
			AttemptCount: status.AttemptCount,
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
}

func (s *Service) signInNeedsMFA(ctx context.Context, email, userID string) (SignInResult, error) {
	verified := s.verifiedFactors(ctx)

	result := SignInResult{
		MFARequired:      true,
		AvailableFactors: verified,
	}
	s.emitAudit(ctx, auditEventMFARequired, true, email, userID, AttemptSignIn, nil, nil)

	if len(verified) == 0 {
		// The provider demands a factor we cannot enumerate. Surface
		// the requirement; the caller must resolve the factor itself.
		return result, nil
	}

	if _, err := s.mfa.BeginChallenge(ctx, verified[0].ID); err != nil {
		// The requirement stands even though the challenge could not
		// be opened; the caller retries via the coordinator.
		log.Print("authgate: mfa challenge on sign-in failed")
	}
	return result, nil
}

// verifiedFactors lists the account's verified second factors. Enumeration
// failures degrade to an empty list; step-up detection is advisory, a
// successful sign-in must not fail on it.
func (s *Service) verifiedFactors(ctx context.Context) []Factor {
	factors, err := s.provider.ListFactors(ctx)
	if err != nil {
		log.Print("authgate: factor list failed")
		return nil
	}
	verified := factors[:0:0]
	for _, f := range factors {
		if f.Verified {
			verified = append(verified, f)
		}
	}
	return verified
}

// SignUp describes the signup operation and its observable behavior.
//
// SignUp creates an account tagged has_password=true, distinguishing it
// from magic-link-only accounts. There is no ban gate, but the outcome is
// logged; transport failures are not counted as attempts.
func (s *Service) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	if s == nil || s.provider == nil {
		return SignUpResult{}, ErrProviderUnavailable
	}

	metadata := map[string]any{metadataKeyHasPassword: true}
	resp, err := s.provider.SignUp(ctx, email, password, metadata)

	var pe *ProviderError
	counted := err == nil || errors.As(err, &pe)
	if counted {
		s.guard.LogOutcome(ctx, email, AttemptSignUp, err == nil)
	}
	s.metricInc(MetricSignUp)
	s.emitAudit(ctx, auditEventSignUpAttempt, err == nil, email, "", AttemptSignUp, err, nil)

	if err != nil {
		if counted {
			return SignUpResult{}, err
		}
		return SignUpResult{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp == nil {
		return SignUpResult{}, fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}
	return SignUpResult{
		Session: resp.Session,
		UserID:  resp.UserID,
	}, nil
}

// SignInWithMagicLink describes the signinwithmagiclink operation and its observable behavior.
//
// SignInWithMagicLink requests a sign-in link. Account creation is always
// allowed and new accounts are tagged has_password=false, so the response
// is identical for known and unknown addresses.
func (s *Service) SignInWithMagicLink(ctx context.Context, email string) error {
	return s.requestMagicLink(ctx, email)
}

// SignUpWithMagicLink describes the signupwithmagiclink operation and its observable behavior.
//
// SignUpWithMagicLink is the sign-up spelling of the same request; the
// provider call is identical so existing addresses are not revealed.
func (s *Service) SignUpWithMagicLink(ctx context.Context, email string) error {
	return s.requestMagicLink(ctx, email)
}

func (s *Service) requestMagicLink(ctx context.Context, email string) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}

	err := s.provider.SignInWithOTP(ctx, email, OTPOptions{
		AllowCreate: true,
		Metadata:    map[string]any{metadataKeyHasPassword: false},
	})

	s.metricInc(MetricMagicLinkRequested)
	s.emitAudit(ctx, auditEventMagicLinkRequested, err == nil, email, "", "", err, nil)

	if err != nil {
		return fmt.Errorf("magic link request: %w", err)
	}
	return nil
}

// UserHasPassword describes the userhaspassword operation and its observable behavior.
//
// UserHasPassword reads the has_password metadata flag. Accounts created
// before the flag existed fall back to inspecting the linked auth
// providers; an account with an email provider link, or with nothing to
// inspect, is assumed to have a password. The fallback is approximate, not
// a guaranteed derivation.
func (s *Service) UserHasPassword(session *Session) bool {
	if session == nil {
		return false
	}

	if flag, ok := session.Metadata[metadataKeyHasPassword]; ok {
		if b, ok := flag.(bool); ok {
			return b
		}
	}

	providers, ok := session.Metadata["providers"]
	if !ok {
		return true
	}
	switch list := providers.(type) {
	case []string:
		return containsString(list, "email")
	case []any:
		for _, p := range list {
			if name, ok := p.(string); ok && name == "email" {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// SetInitialPassword describes the setinitialpassword operation and its observable behavior.
//
// SetInitialPassword gives a magic-link-only account a password. The
// password and the has_password flag are applied in one provider call, so
// the flag can never disagree with the credential.
func (s *Service) SetInitialPassword(ctx context.Context, newPassword string) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}
	if _, ok := s.tracker.Current(); !ok {
		return ErrNoSession
	}

	_, err := s.provider.UpdateUser(ctx, UserUpdate{
		Password: &newPassword,
		Metadata: map[string]any{metadataKeyHasPassword: true},
	})
	if err != nil {
		return fmt.Errorf("set initial password: %w", err)
	}
	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword triggers a reset email. Provider-level rejections are
// swallowed so the caller cannot distinguish registered from unregistered
// addresses; only transport failures surface. The request is mirrored to
// the advisory backend under the reset_password kind.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}

	err := s.provider.ResetPasswordForEmail(ctx, email)

	s.advisory.Log(ctx, AdvisoryAttempt{
		Identifier: normalizeIdentifier(email),
		Origin:     clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Kind:       string(AttemptResetPassword),
		Success:    err == nil,
	})
	s.metricInc(MetricPasswordResetRequested)
	s.emitAudit(ctx, auditEventPasswordResetRequest, err == nil, email, "", AttemptResetPassword, err, nil)

	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			// Indistinguishable success, by contract.
			return nil
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// UpdateEmail changes the account email address. The provider sends its
// own confirmation flow; the tracker observes the resulting change.
func (s *Service) UpdateEmail(ctx context.Context, newEmail string) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}
	if _, ok := s.tracker.Current(); !ok {
		return ErrNoSession
	}

	_, err := s.provider.UpdateUser(ctx, UserUpdate{Email: &newEmail})
	if err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	return nil
}

// UpdatePassword changes the password on an account that already has one.
// The has_password flag is left untouched.
func (s *Service) UpdatePassword(ctx context.Context, newPassword string) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}
	if _, ok := s.tracker.Current(); !ok {
		return ErrNoSession
	}

	_, err := s.provider.UpdateUser(ctx, UserUpdate{Password: &newPassword})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteAccount describes the deleteaccount operation and its observable behavior.
//
// DeleteAccount removes the account through the privileged backend call
// authorized by the current access token, then signs out locally. A failed
// delete propagates and skips the sign-out, leaving the session intact.
func (s *Service) DeleteAccount(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}
	session, ok := s.tracker.Current()
	if !ok {
		return ErrNoSession
	}

	if err := s.provider.DeleteUser(ctx, session.AccessToken); err != nil {
		s.emitAudit(ctx, auditEventAccountDeleted, false, session.Email, session.UserID, "", err, nil)
		return fmt.Errorf("delete account: %w", err)
	}

	s.emitAudit(ctx, auditEventAccountDeleted, true, session.Email, session.UserID, "", nil, nil)
	return s.SignOut(ctx)
}

// SignOut describes the signout operation and its observable behavior.
//
// SignOut cancels any outstanding MFA challenge and clears the provider
// session; the tracker observes the resulting change notification.
func (s *Service) SignOut(ctx context.Context) error {
	if s == nil || s.provider == nil {
		return ErrProviderUnavailable
	}

	s.mfa.Cancel()

	err := s.provider.SignOut(ctx)
	s.metricInc(MetricSignOut)
	s.emitAudit(ctx, auditEventSignOut, err == nil, "", "", "", err, nil)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}
