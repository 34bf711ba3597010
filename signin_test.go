package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestSignInBannedBeforeProviderCall(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.svc.Guard().LogOutcome(ctx, "a@x.com", AttemptSignIn, false)
	}

	_, err := h.svc.SignIn(ctx, "a@x.com", "pw")
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}

	var banErr *BannedError
	if !errors.As(err, &banErr) {
		t.Fatalf("expected *BannedError, got %T", err)
	}
	if banErr.AttemptCount != 5 {
		t.Fatalf("expected attempt count 5, got %d", banErr.AttemptCount)
	}
	if h.provider.signInCalls != 0 {
		t.Fatalf("expected provider untouched while banned, got %d calls", h.provider.signInCalls)
	}
}

func TestSignInCredentialFailureCounts(t *testing.T) {
	provider := &mockProvider{
		signInErr: &ProviderError{Code: "invalid_credentials", Message: "Invalid login credentials"},
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	_, err := h.svc.SignIn(ctx, "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 1 {
		t.Fatalf("expected 1 counted attempt, got %d", status.AttemptCount)
	}
}

func TestSignInInfraFailureDoesNotCount(t *testing.T) {
	provider := &mockProvider{
		signInErr: errors.New("connection refused"),
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	_, err := h.svc.SignIn(ctx, "a@x.com", "pw")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 0 {
		t.Fatalf("expected no counted attempts for infra failure, got %d", status.AttemptCount)
	}
}

func TestSignInMessagePatternClassification(t *testing.T) {
	// Providers without error codes fall back to the message allowlist.
	provider := &mockProvider{
		signInErr: &ProviderError{Message: "Invalid email or password"},
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	if _, err := h.svc.SignIn(ctx, "a@x.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 1 {
		t.Fatalf("expected counted attempt, got %d", status.AttemptCount)
	}

	// An unlisted provider rejection stays uncounted.
	provider.mu.Lock()
	provider.signInErr = &ProviderError{Message: "Service temporarily unavailable"}
	provider.mu.Unlock()
	if _, err := h.svc.SignIn(ctx, "a@x.com", "pw"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 1 {
		t.Fatalf("expected count unchanged, got %d", status.AttemptCount)
	}
}

func TestSignInFreshBanOverridesCredentialError(t *testing.T) {
	provider := &mockProvider{
		signInErr: &ProviderError{Code: "invalid_credentials"},
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	var err error
	for i := 0; i < 5; i++ {
		_, err = h.svc.SignIn(ctx, "a@x.com", "wrong")
	}

	var banErr *BannedError
	if !errors.As(err, &banErr) {
		t.Fatalf("expected fifth failure to surface *BannedError, got %v", err)
	}
	if h.provider.signInCalls != 5 {
		t.Fatalf("expected exactly 5 provider calls, got %d", h.provider.signInCalls)
	}

	// The sixth attempt never reaches the provider.
	if _, err := h.svc.SignIn(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if h.provider.signInCalls != 5 {
		t.Fatalf("expected banned attempt rejected before provider, got %d calls", h.provider.signInCalls)
	}
}

func TestSignInSuccessClearsAttempts(t *testing.T) {
	session := &Session{UserID: "u1", Email: "a@x.com", AssuranceLevel: AAL2}
	provider := &mockProvider{
		signInResp: &AuthResponse{Session: session, UserID: "u1"},
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	h.svc.Guard().LogOutcome(ctx, "a@x.com", AttemptSignIn, false)

	result, err := h.svc.SignIn(ctx, "a@x.com", "pw")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if result.Session == nil || result.Session.UserID != "u1" {
		t.Fatalf("expected session in result, got %+v", result)
	}
	if result.MFARequired || result.MFAUpgradeRequired {
		t.Fatalf("expected plain success, got %+v", result)
	}

	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 0 {
		t.Fatalf("expected success to clear attempts, got %d", status.AttemptCount)
	}
	if got := h.svc.MetricsSnapshot().Counters[MetricSignInSuccess]; got != 1 {
		t.Fatalf("expected success metric 1, got %d", got)
	}
}

func TestSignInAAL1WithVerifiedFactorRequiresUpgrade(t *testing.T) {
	session := &Session{UserID: "u1", AssuranceLevel: AAL1}
	provider := &mockProvider{
		signInResp: &AuthResponse{Session: session, UserID: "u1"},
		factors: []Factor{
			{ID: "f1", Type: "totp", Verified: true},
			{ID: "f2", Type: "totp", Verified: false},
		},
	}
	h := newTestService(t, provider, nil)

	result, err := h.svc.SignIn(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if !result.MFAUpgradeRequired {
		t.Fatal("expected MFAUpgradeRequired for AAL1 session with verified factor")
	}
	if result.Session == nil {
		t.Fatal("expected the AAL1 session to remain usable")
	}
	if len(result.AvailableFactors) != 1 || result.AvailableFactors[0].ID != "f1" {
		t.Fatalf("expected only verified factors, got %+v", result.AvailableFactors)
	}
}

func TestSignInUserWithoutSessionStartsChallenge(t *testing.T) {
	provider := &mockProvider{
		signInResp:  &AuthResponse{UserID: "u1"},
		factors:     []Factor{{ID: "f1", Type: "totp", Verified: true}},
		challengeID: "ch-1",
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	result, err := h.svc.SignIn(ctx, "a@x.com", "pw")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if !result.MFARequired {
		t.Fatal("expected MFARequired for user without session")
	}

	challenge, ok := h.svc.MFA().Challenge()
	if !ok {
		t.Fatal("expected an outstanding challenge")
	}
	if challenge.FactorID != "f1" || challenge.ChallengeID != "ch-1" {
		t.Fatalf("unexpected challenge %+v", challenge)
	}

	// A pending second factor is not a failed attempt.
	if status := h.svc.Guard().CheckStatus(ctx, "a@x.com"); status.AttemptCount != 0 {
		t.Fatalf("expected no counted attempt, got %d", status.AttemptCount)
	}
}

func TestSignUpTagsHasPassword(t *testing.T) {
	provider := &mockProvider{
		signUpResp: &AuthResponse{UserID: "u1"},
	}
	h := newTestService(t, provider, nil)

	result, err := h.svc.SignUp(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if result.UserID != "u1" {
		t.Fatalf("unexpected result %+v", result)
	}

	flag, ok := h.provider.signUpMetadata[metadataKeyHasPassword].(bool)
	if !ok || !flag {
		t.Fatalf("expected has_password=true metadata, got %v", h.provider.signUpMetadata)
	}
}

func TestMagicLinkRequestsAreUniform(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)
	ctx := context.Background()

	if err := h.svc.SignInWithMagicLink(ctx, "known@x.com"); err != nil {
		t.Fatalf("SignInWithMagicLink failed: %v", err)
	}
	if err := h.svc.SignUpWithMagicLink(ctx, "new@x.com"); err != nil {
		t.Fatalf("SignUpWithMagicLink failed: %v", err)
	}

	if h.provider.otpCalls != 2 {
		t.Fatalf("expected 2 OTP calls, got %d", h.provider.otpCalls)
	}
	if !h.provider.otpOpts.AllowCreate {
		t.Fatal("expected AllowCreate on every magic-link request")
	}
	flag, ok := h.provider.otpOpts.Metadata[metadataKeyHasPassword].(bool)
	if !ok || flag {
		t.Fatalf("expected has_password=false metadata, got %v", h.provider.otpOpts.Metadata)
	}
}

func TestUserHasPassword(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)

	cases := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil session", nil, false},
		{"flag true", &Session{Metadata: map[string]any{metadataKeyHasPassword: true}}, true},
		{"flag false", &Session{Metadata: map[string]any{metadataKeyHasPassword: false}}, false},
		{"no flag, email provider linked", &Session{Metadata: map[string]any{"providers": []any{"google", "email"}}}, true},
		{"no flag, oauth only", &Session{Metadata: map[string]any{"providers": []any{"google"}}}, false},
		{"no flag, no provider list", &Session{Metadata: map[string]any{}}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := h.svc.UserHasPassword(tc.session); got != tc.want {
				t.Fatalf("UserHasPassword = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetInitialPassword(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)
	ctx := context.Background()
	h.waitReady(t)

	if err := h.svc.SetInitialPassword(ctx, "new-pw"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession without a session, got %v", err)
	}

	h.provider.notify(SessionChange{Kind: ChangeSignedIn, Session: &Session{UserID: "u1"}})
	if err := h.svc.SetInitialPassword(ctx, "new-pw"); err != nil {
		t.Fatalf("SetInitialPassword failed: %v", err)
	}

	if len(h.provider.updates) != 1 {
		t.Fatalf("expected one provider update, got %d", len(h.provider.updates))
	}
	update := h.provider.updates[0]
	if update.Password == nil || *update.Password != "new-pw" {
		t.Fatalf("expected password in update, got %+v", update)
	}
	if flag, ok := update.Metadata[metadataKeyHasPassword].(bool); !ok || !flag {
		t.Fatalf("expected has_password=true in the same update, got %+v", update.Metadata)
	}
}

func TestResetPasswordEnumerationResistance(t *testing.T) {
	remote := &stubAdvisory{}
	provider := &mockProvider{
		resetErr: &ProviderError{Code: "user_not_found", Message: "user does not exist"},
	}
	h := newTestService(t, provider, func(b *Builder) {
		b.WithAdvisory(remote)
	})
	ctx := context.Background()

	// Provider rejections are indistinguishable from success.
	if err := h.svc.ResetPassword(ctx, "unknown@x.com"); err != nil {
		t.Fatalf("expected swallowed provider rejection, got %v", err)
	}

	remote.mu.Lock()
	mirrored := len(remote.attempts)
	kind := ""
	if mirrored > 0 {
		kind = remote.attempts[0].Kind
	}
	remote.mu.Unlock()
	if mirrored != 1 || kind != "reset_password" {
		t.Fatalf("expected one reset_password mirror, got %d (%q)", mirrored, kind)
	}

	// Transport failures still surface.
	provider.mu.Lock()
	provider.resetErr = errors.New("connection refused")
	provider.mu.Unlock()
	if err := h.svc.ResetPassword(ctx, "a@x.com"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestUpdateEmailAndPasswordRequireSession(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)
	ctx := context.Background()
	h.waitReady(t)

	if err := h.svc.UpdateEmail(ctx, "b@x.com"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := h.svc.UpdatePassword(ctx, "pw2"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	h.provider.notify(SessionChange{Kind: ChangeSignedIn, Session: &Session{UserID: "u1"}})

	if err := h.svc.UpdateEmail(ctx, "b@x.com"); err != nil {
		t.Fatalf("UpdateEmail failed: %v", err)
	}
	if err := h.svc.UpdatePassword(ctx, "pw2"); err != nil {
		t.Fatalf("UpdatePassword failed: %v", err)
	}

	if len(h.provider.updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(h.provider.updates))
	}
	if h.provider.updates[0].Email == nil || *h.provider.updates[0].Email != "b@x.com" {
		t.Fatalf("expected email update, got %+v", h.provider.updates[0])
	}
	if h.provider.updates[1].Password == nil || *h.provider.updates[1].Password != "pw2" {
		t.Fatalf("expected password update, got %+v", h.provider.updates[1])
	}
	// A plain password change must not touch the has_password flag.
	if h.provider.updates[1].Metadata != nil {
		t.Fatalf("expected no metadata on password update, got %+v", h.provider.updates[1].Metadata)
	}
}

func TestDeleteAccount(t *testing.T) {
	h := newTestService(t, &mockProvider{}, nil)
	ctx := context.Background()
	h.waitReady(t)

	if err := h.svc.DeleteAccount(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	h.provider.notify(SessionChange{Kind: ChangeSignedIn, Session: &Session{
		UserID:      "u1",
		AccessToken: "tok-1",
	}})

	if err := h.svc.DeleteAccount(ctx); err != nil {
		t.Fatalf("DeleteAccount failed: %v", err)
	}
	if h.provider.deleteCalls != 1 || h.provider.deleteTokens[0] != "tok-1" {
		t.Fatalf("expected privileged delete with access token, got %+v", h.provider.deleteTokens)
	}
	if h.provider.signOutCalls != 1 {
		t.Fatalf("expected sign-out after delete, got %d", h.provider.signOutCalls)
	}
}

func TestDeleteAccountFailureSkipsSignOut(t *testing.T) {
	provider := &mockProvider{
		deleteErr: errors.New("forbidden"),
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()
	h.waitReady(t)

	h.provider.notify(SessionChange{Kind: ChangeSignedIn, Session: &Session{
		UserID:      "u1",
		AccessToken: "tok-1",
	}})

	if err := h.svc.DeleteAccount(ctx); err == nil {
		t.Fatal("expected delete failure to propagate")
	}
	if h.provider.signOutCalls != 0 {
		t.Fatal("expected sign-out skipped when delete fails")
	}
}

func TestSignOutCancelsChallenge(t *testing.T) {
	provider := &mockProvider{
		challengeID: "ch-1",
	}
	h := newTestService(t, provider, nil)
	ctx := context.Background()

	if _, err := h.svc.MFA().BeginChallenge(ctx, "f1"); err != nil {
		t.Fatalf("BeginChallenge failed: %v", err)
	}
	if _, ok := h.svc.MFA().Challenge(); !ok {
		t.Fatal("expected outstanding challenge")
	}

	if err := h.svc.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, ok := h.svc.MFA().Challenge(); ok {
		t.Fatal("expected sign-out to cancel the challenge")
	}
	if h.provider.signOutCalls != 1 {
		t.Fatalf("expected one provider sign-out, got %d", h.provider.signOutCalls)
	}
}
