package advisory

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/procyonhq/authgate/internal/ban"
)

// Attempt is one authentication outcome mirrored to the backend for
// cross-device tracking.
type Attempt struct {
	Identifier string
	Origin     string
	UserAgent  string
	Kind       string
	Success    bool
	At         time.Time
}

// Provider is the remote advisory contract. Implementations are expected
// to be backed by a privileged RPC on the identity provider's backend.
type Provider interface {
	IsBanned(ctx context.Context, identifier string) (ban.State, error)
	LogAttempt(ctx context.Context, attempt Attempt) error
}

// Config tunes the advisory client.
type Config struct {
	// CheckInterval spaces out remote status checks. Zero disables the
	// throttle.
	CheckInterval time.Duration
	// CheckBurst allows short bursts of checks before the interval
	// applies. Defaults to 1.
	CheckBurst int
}

// Client is a nil-safe, best-effort wrapper over a Provider.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	degraded func()
}

// NewClient creates an advisory client. provider may be nil, in which case
// every call reports "no signal". onDegraded, if non-nil, is invoked once
// per swallowed remote failure (metrics hook).
func NewClient(provider Provider, cfg Config, onDegraded func()) *Client {
	var limiter *rate.Limiter
	if cfg.CheckInterval > 0 {
		burst := cfg.CheckBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(cfg.CheckInterval), burst)
	}
	return &Client{
		provider: provider,
		limiter:  limiter,
		degraded: onDegraded,
	}
}

// Check queries the remote ban verdict. The second return value is false
// when no remote signal is available: provider absent, throttled, or the
// call failed.
func (c *Client) Check(ctx context.Context, identifier string) (ban.State, bool) {
	if c == nil || c.provider == nil || identifier == "" {
		return ban.State{}, false
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return ban.State{}, false
	}

	state, err := c.provider.IsBanned(ctx, identifier)
	if err != nil {
		log.Print("authgate: remote ban check failed")
		c.notifyDegraded()
		return ban.State{}, false
	}
	return state, true
}

// Log mirrors an attempt outcome to the backend. Failures are swallowed;
// local state is already recorded by the time this is called.
func (c *Client) Log(ctx context.Context, attempt Attempt) {
	if c == nil || c.provider == nil || attempt.Identifier == "" {
		return
	}
	if err := c.provider.LogAttempt(ctx, attempt); err != nil {
		log.Print("authgate: remote attempt log failed")
		c.notifyDegraded()
	}
}

func (c *Client) notifyDegraded() {
	if c.degraded != nil {
		c.degraded()
	}
}
