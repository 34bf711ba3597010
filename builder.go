package authgate

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/procyonhq/authgate/internal/advisory"
	"github.com/procyonhq/authgate/internal/attempts"
	"github.com/procyonhq/authgate/internal/audit"
)

// AdvisoryProvider is the remote ban-advisory contract: a best-effort,
// privileged backend endpoint consulted alongside the local verdict.
type AdvisoryProvider = advisory.Provider

// AdvisoryAttempt is the payload mirrored to the advisory backend.
type AdvisoryAttempt = advisory.Attempt

// Builder defines a public type used by authgate APIs.
//
// Builder instances are intended to be configured during initialization
// and then treated as immutable.
type Builder struct {
	config Config
	redis  *redis.Client

	provider IdentityProvider
	advisory AdvisoryProvider

	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts a Builder with the default policy: 5 attempts over a
// 60 minute window trigger a 15 minute ban.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the redis client backing the attempt store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProvider sets the identity provider the service orchestrates.
func (b *Builder) WithProvider(provider IdentityProvider) *Builder {
	b.provider = provider
	return b
}

// WithAdvisory sets the optional remote ban-advisory backend.
func (b *Builder) WithAdvisory(provider AdvisoryProvider) *Builder {
	b.advisory = provider
	return b
}

// WithAuditSink sets the sink audit events are dispatched to and enables
// the audit trail.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, wires the service and starts the
// session tracker. A Builder can build at most once.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		config:   cfg,
		provider: b.provider,
	}

	svc.metrics = NewMetrics(cfg.Metrics)

	// Retention pads the key TTL so the records anchoring an active ban
	// outlive the window.
	svc.attempts = attempts.NewStore(
		b.redis,
		cfg.Guard.AttemptWindow,
		cfg.Guard.AttemptWindow+cfg.Guard.BanDuration,
	)

	var advisoryProvider AdvisoryProvider
	if cfg.Advisory.Enabled {
		advisoryProvider = b.advisory
	}
	svc.advisory = advisory.NewClient(advisoryProvider, advisory.Config{
		CheckInterval: cfg.Advisory.CheckInterval,
		CheckBurst:    cfg.Advisory.CheckBurst,
	}, func() {
		svc.metricInc(MetricAdvisoryDegraded)
		svc.emitAudit(context.Background(), auditEventAdvisoryDegraded, false, "", "", "", nil, nil)
	})

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		svc.audit = audit.NewDispatcher(cfg.Audit.BufferSize, cfg.Audit.DropIfFull, sink)
	}

	svc.guard = newBruteForceGuard(svc.attempts, svc.advisory, cfg.Guard)
	svc.mfa = newMfaCoordinator(b.provider, svc)
	svc.tracker = newSessionTracker(b.provider, svc.mfa, svc)
	svc.tracker.start()

	b.built = true
	return svc, nil
}
