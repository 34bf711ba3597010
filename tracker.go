package authgate

import (
	"context"
	"log"
	"sync"
)

// SessionTracker defines a public type used by authgate APIs.
//
// SessionTracker owns the current Session. It starts in a loading state,
// issues one restore read against the provider's persisted session, and
// thereafter mirrors the provider's notification stream in order. The
// session value is replaced wholesale on every change, never mutated.
// Consumers must not make access decisions while Loading reports true.
type SessionTracker struct {
	provider IdentityProvider
	mfa      *MfaCoordinator
	svc      *Service

	mu              sync.Mutex
	loading         bool
	session         *Session
	sawNotification bool
	observers       map[int]func(SessionChange)
	nextObserverID  int
	unsubscribe     func()
	closed          bool

	readyOnce sync.Once
	ready     chan struct{}

	// notifyMu serializes observer dispatch so changes are observed in
	// the order the provider delivered them.
	notifyMu sync.Mutex
}

func newSessionTracker(provider IdentityProvider, mfa *MfaCoordinator, svc *Service) *SessionTracker {
	return &SessionTracker{
		provider:  provider,
		mfa:       mfa,
		svc:       svc,
		loading:   true,
		observers: make(map[int]func(SessionChange)),
		ready:     make(chan struct{}),
	}
}

// start subscribes to the provider stream and kicks off the restore read.
// The subscription is registered before the restore so a change landing
// during the read wins over the stale restore result.
func (t *SessionTracker) start() {
	t.mu.Lock()
	t.unsubscribe = t.provider.OnSessionChange(t.handleChange)
	t.mu.Unlock()

	go t.restore()
}

func (t *SessionTracker) restore() {
	ctx := context.Background()
	session, err := t.provider.CurrentSession(ctx)
	if err != nil {
		log.Print("authgate: session restore failed")
		session = nil
	}

	t.mu.Lock()
	if t.closed || t.sawNotification {
		// A live notification already resolved the state; the restore
		// result is stale.
		t.mu.Unlock()
		t.markReady()
		return
	}
	t.loading = false
	t.session = session
	t.mu.Unlock()
	t.markReady()

	if session != nil {
		t.svc.emitAudit(ctx, auditEventSessionRestored, true, session.Email, session.UserID, "", nil, nil)
	}
	t.dispatch(SessionChange{Kind: ChangeInitialSession, Session: session})
}

func (t *SessionTracker) handleChange(change SessionChange) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.sawNotification = true
	t.loading = false
	t.session = change.Session
	t.mu.Unlock()
	t.markReady()

	if change.Kind == ChangeChallengeVerified {
		t.mfa.clearChallenge()
	}

	t.svc.metricInc(MetricSessionChanged)
	userID := ""
	email := ""
	if change.Session != nil {
		userID = change.Session.UserID
		email = change.Session.Email
	}
	t.svc.emitAudit(context.Background(), auditEventSessionChanged, true, email, userID, "", nil, func() map[string]string {
		return map[string]string{"change": string(change.Kind)}
	})

	t.dispatch(change)
}

func (t *SessionTracker) markReady() {
	t.readyOnce.Do(func() {
		close(t.ready)
	})
}

func (t *SessionTracker) dispatch(change SessionChange) {
	t.mu.Lock()
	fns := make([]func(SessionChange), 0, len(t.observers))
	for _, fn := range t.observers {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

// Loading reports whether the startup restore is still unresolved.
func (t *SessionTracker) Loading() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Current returns the tracked session. The second return value is false
// while the tracker is still loading or when no session exists.
func (t *SessionTracker) Current() (*Session, bool) {
	if t == nil {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loading || t.session == nil {
		return nil, false
	}
	return t.session, true
}

// Ready blocks until the tracker has resolved its initial state or ctx is
// done.
func (t *SessionTracker) Ready(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers an observer for session changes and returns its
// unsubscribe handle. Observers run on the tracker's dispatch path and
// should not block.
func (t *SessionTracker) Subscribe(fn func(SessionChange)) func() {
	if t == nil || fn == nil {
		return func() {}
	}
	t.mu.Lock()
	id := t.nextObserverID
	t.nextObserverID++
	t.observers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}
}

// Close describes the close operation and its observable behavior.
//
// Close unsubscribes from the provider stream and stops observer
// dispatch. Idempotent.
func (t *SessionTracker) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	t.markReady()
}
