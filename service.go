package authgate

import (
	"github.com/procyonhq/authgate/internal/advisory"
	"github.com/procyonhq/authgate/internal/attempts"
	"github.com/procyonhq/authgate/internal/audit"
)

// Service defines a public type used by authgate APIs.
//
// Service is the auth orchestration root: it owns the brute-force guard,
// the session tracker and the MFA coordinator, and exposes the credential
// flows. Construct exactly one per process via the Builder and pass it by
// injection; there is no package-level instance.
type Service struct {
	config   Config
	provider IdentityProvider

	guard   *BruteForceGuard
	tracker *SessionTracker
	mfa     *MfaCoordinator

	attempts *attempts.Store
	advisory *advisory.Client
	audit    *audit.Dispatcher
	metrics  *Metrics
}

// Guard returns the brute-force guard.
func (s *Service) Guard() *BruteForceGuard {
	if s == nil {
		return nil
	}
	return s.guard
}

// Tracker returns the session tracker.
func (s *Service) Tracker() *SessionTracker {
	if s == nil {
		return nil
	}
	return s.tracker
}

// MFA returns the second-factor coordinator.
func (s *Service) MFA() *MfaCoordinator {
	if s == nil {
		return nil
	}
	return s.mfa
}

// Close describes the close operation and its observable behavior.
//
// Close stops the session tracker and drains the audit dispatcher.
// Idempotent.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.tracker != nil {
		s.tracker.Close()
	}
	if s.audit != nil {
		s.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports how many audit events were dropped because the
// dispatcher buffer was full.
func (s *Service) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot copies the service's counters. With metrics disabled all
// counters read zero.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return s.metrics.Snapshot()
}

func (s *Service) metricInc(id MetricID) {
	if s == nil {
		return
	}
	s.metrics.Inc(id)
}
