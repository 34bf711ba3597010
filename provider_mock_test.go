package authgate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
)

// mockProvider is a scriptable IdentityProvider with call counters.
type mockProvider struct {
	mu sync.Mutex

	signInResp  *AuthResponse
	signInErr   error
	signInCalls int

	signUpResp     *AuthResponse
	signUpErr      error
	signUpCalls    int
	signUpMetadata map[string]any

	otpErr   error
	otpCalls int
	otpEmail string
	otpOpts  OTPOptions

	currentSession *Session
	currentErr     error
	currentCalls   int
	restoreGate    chan struct{}

	callback     func(SessionChange)
	unsubscribed int

	updateSession *Session
	updateErr     error
	updates       []UserUpdate

	resetErr   error
	resetCalls int

	signOutErr   error
	signOutCalls int

	factors    []Factor
	factorsErr error

	challengeID    string
	challengeErr   error
	challengeCalls int

	verifySession *Session
	verifyErr     error
	verifyParams  []VerifyParams
	totpSecret    string

	deleteErr    error
	deleteCalls  int
	deleteTokens []string
}

func (m *mockProvider) SignInWithPassword(_ context.Context, _, _ string) (*AuthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signInCalls++
	return m.signInResp, m.signInErr
}

func (m *mockProvider) SignUp(_ context.Context, _, _ string, metadata map[string]any) (*AuthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signUpCalls++
	m.signUpMetadata = metadata
	return m.signUpResp, m.signUpErr
}

func (m *mockProvider) SignInWithOTP(_ context.Context, email string, opts OTPOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otpCalls++
	m.otpEmail = email
	m.otpOpts = opts
	return m.otpErr
}

func (m *mockProvider) CurrentSession(context.Context) (*Session, error) {
	m.mu.Lock()
	gate := m.restoreGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentCalls++
	return m.currentSession, m.currentErr
}

func (m *mockProvider) OnSessionChange(fn func(SessionChange)) func() {
	m.mu.Lock()
	m.callback = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.unsubscribed++
		m.callback = nil
		m.mu.Unlock()
	}
}

// notify injects a provider-side session change.
func (m *mockProvider) notify(change SessionChange) {
	m.mu.Lock()
	fn := m.callback
	m.mu.Unlock()
	if fn != nil {
		fn(change)
	}
}

func (m *mockProvider) UpdateUser(_ context.Context, update UserUpdate) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return m.updateSession, m.updateErr
}

func (m *mockProvider) ResetPasswordForEmail(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	return m.resetErr
}

func (m *mockProvider) SignOut(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOutCalls++
	return m.signOutErr
}

func (m *mockProvider) ListFactors(context.Context) ([]Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.factors, m.factorsErr
}

func (m *mockProvider) ChallengeFactor(context.Context, string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challengeCalls++
	return m.challengeID, m.challengeErr
}

func (m *mockProvider) VerifyFactor(_ context.Context, params VerifyParams) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyParams = append(m.verifyParams, params)

	if m.totpSecret != "" {
		ok := totp.Validate(params.Code, m.totpSecret)
		if !ok {
			return nil, &ProviderError{Code: "mfa_verification_failed", Message: "invalid TOTP code"}
		}
		return m.verifySession, nil
	}
	return m.verifySession, m.verifyErr
}

func (m *mockProvider) DeleteUser(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	m.deleteTokens = append(m.deleteTokens, accessToken)
	return m.deleteErr
}

func (m *mockProvider) counts() (signIn, challenge, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signInCalls, m.challengeCalls, len(m.verifyParams)
}

// stubAdvisory is a scriptable AdvisoryProvider.
type stubAdvisory struct {
	mu         sync.Mutex
	state      BanState
	checkErr   error
	checkCalls int
	logErr     error
	attempts   []AdvisoryAttempt
}

func (s *stubAdvisory) IsBanned(context.Context, string) (BanState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCalls++
	return s.state, s.checkErr
}

func (s *stubAdvisory) LogAttempt(_ context.Context, attempt AdvisoryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return s.logErr
}

type testHarness struct {
	svc      *Service
	provider *mockProvider
	redis    *miniredis.Miniredis
}

func newTestService(t *testing.T, provider *mockProvider, mutate func(*Builder)) *testHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Advisory.CheckInterval = 0

	b := New().WithConfig(cfg).WithRedis(client).WithProvider(provider)
	if mutate != nil {
		mutate(b)
	}

	svc, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(svc.Close)

	return &testHarness{svc: svc, provider: provider, redis: mr}
}

// waitReady blocks until the tracker resolved its initial state.
func (h *testHarness) waitReady(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.svc.Tracker().Ready(ctx); err != nil {
		t.Fatalf("tracker never became ready: %v", err)
	}
}
