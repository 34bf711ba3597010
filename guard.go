package authgate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/procyonhq/authgate/internal/advisory"
	"github.com/procyonhq/authgate/internal/attempts"
	"github.com/procyonhq/authgate/internal/ban"
)

// BruteForceGuard defines a public type used by authgate APIs.
//
// BruteForceGuard gates credentialed operations per identifier: it counts
// failed attempts in a rolling window, derives a ban verdict locally,
// merges in a best-effort remote advisory verdict, and formats the
// remaining ban time for display. The remote advisory never becomes a hard
// dependency; its failures degrade to the local verdict.
type BruteForceGuard struct {
	store    *attempts.Store
	advisory *advisory.Client
	policy   ban.Policy

	trackOrigin bool
	now         func() time.Time

	mu   sync.Mutex
	last BanState
}

func newBruteForceGuard(
	store *attempts.Store,
	advisoryClient *advisory.Client,
	cfg GuardConfig,
) *BruteForceGuard {
	return &BruteForceGuard{
		store:    store,
		advisory: advisoryClient,
		policy: ban.Policy{
			MaxAttempts:   cfg.MaxAttempts,
			BanDuration:   cfg.BanDuration,
			AttemptWindow: cfg.AttemptWindow,
		},
		trackOrigin: cfg.TrackOrigin,
		now:         time.Now,
	}
}

// normalizeIdentifier folds an email address into its storage key form.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func originKey(ip string) string {
	return "ip:" + ip
}

// CheckStatus describes the checkstatus operation and its observable behavior.
//
// CheckStatus derives the identifier's ban verdict from the local attempt
// records, folds in the origin verdict when a client IP is in ctx, and
// merges the remote advisory verdict when one is available. Expired
// records are pruned and cleared as a side effect, so a lapsed ban reports
// an attempt count of zero. Idempotent and safe to call repeatedly.
func (g *BruteForceGuard) CheckStatus(ctx context.Context, identifier string) BanState {
	if g == nil {
		return BanState{}
	}
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return BanState{}
	}
	now := g.now()

	state := g.localState(ctx, identifier, now)

	if remote, ok := g.advisory.Check(ctx, identifier); ok {
		state = ban.Merge(state, remote)
	}

	g.mu.Lock()
	g.last = state
	g.mu.Unlock()

	return state
}

func (g *BruteForceGuard) localState(ctx context.Context, identifier string, now time.Time) BanState {
	state := g.deriveKey(ctx, identifier, now)

	if g.trackOrigin {
		if ip := clientIPFromContext(ctx); ip != "" {
			origin := g.deriveKey(ctx, originKey(ip), now)
			// The email verdict's count stays authoritative; the
			// origin key only contributes its ban flag and horizon.
			origin.AttemptCount = 0
			state = ban.Merge(state, origin)
		}
	}
	return state
}

func (g *BruteForceGuard) deriveKey(ctx context.Context, key string, now time.Time) BanState {
	timestamps := g.store.Snapshot(ctx, key, now)
	state, lapsed := ban.Derive(timestamps, g.policy, now)
	if lapsed {
		g.store.Clear(ctx, key)
	}
	return state
}

// LogOutcome describes the logoutcome operation and its observable behavior.
//
// LogOutcome records one attempt outcome: success clears the identifier's
// records, failure appends a timestamped record, in both cases for the
// origin key too when a client IP is in ctx. The outcome is mirrored to
// the remote advisory for cross-device tracking; a mirror failure never
// affects local state. kind labels the attempt for audit only.
func (g *BruteForceGuard) LogOutcome(ctx context.Context, identifier string, kind AttemptKind, succeeded bool) {
	if g == nil {
		return
	}
	identifier = normalizeIdentifier(identifier)
	if identifier == "" {
		return
	}
	now := g.now()
	ip := ""
	if g.trackOrigin {
		ip = clientIPFromContext(ctx)
	}

	if succeeded {
		g.store.Clear(ctx, identifier)
		if ip != "" {
			g.store.Clear(ctx, originKey(ip))
		}
	} else {
		g.store.Record(ctx, identifier, now)
		if ip != "" {
			g.store.Record(ctx, originKey(ip), now)
		}
	}

	g.advisory.Log(ctx, advisory.Attempt{
		Identifier: identifier,
		Origin:     clientIPFromContext(ctx),
		UserAgent:  userAgentFromContext(ctx),
		Kind:       string(kind),
		Success:    succeeded,
		At:         now,
	})
}

// TimeRemaining describes the timeremaining operation and its observable behavior.
//
// TimeRemaining returns the time left on the last verdict computed by
// CheckStatus, never negative.
func (g *BruteForceGuard) TimeRemaining() time.Duration {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	state := g.last
	g.mu.Unlock()

	return ban.Remaining(state, g.now())
}

// FormatRemaining describes the formatremaining operation and its observable behavior.
//
// FormatRemaining renders the remaining ban time as "Xm Ys", re-derived on
// every call so a ticking display reflects truth. It returns "" when the
// last verdict is not banned.
func (g *BruteForceGuard) FormatRemaining() string {
	if g == nil {
		return ""
	}
	remaining := g.TimeRemaining()
	if remaining <= 0 {
		return ""
	}
	return formatDuration(remaining)
}

// Reset describes the reset operation and its observable behavior.
//
// Reset clears the in-memory verdict only; attempt records are untouched.
// Used when the caller's identifier input is emptied.
func (g *BruteForceGuard) Reset() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.last = BanState{}
	g.mu.Unlock()
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	minutes := int(d / time.Minute)
	seconds := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
