package authgate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MfaCoordinator defines a public type used by authgate APIs.
//
// MfaCoordinator is the single owner of second-factor challenge state. At
// most one challenge is outstanding; issuing a new one replaces it. Other
// components observe the challenge through Challenge, they never mutate
// it.
type MfaCoordinator struct {
	provider IdentityProvider
	svc      *Service

	mu        sync.Mutex
	challenge *MfaChallenge
}

func newMfaCoordinator(provider IdentityProvider, svc *Service) *MfaCoordinator {
	return &MfaCoordinator{
		provider: provider,
		svc:      svc,
	}
}

// Challenge returns the outstanding challenge, if any.
func (m *MfaCoordinator) Challenge() (MfaChallenge, bool) {
	if m == nil {
		return MfaChallenge{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.challenge == nil {
		return MfaChallenge{}, false
	}
	return *m.challenge, true
}

// BeginChallenge describes the beginchallenge operation and its observable behavior.
//
// BeginChallenge requests a challenge token for the given factor. On
// success the coordinator holds the new challenge, replacing any prior
// one. On failure no challenge is outstanding and the provider error is
// returned.
func (m *MfaCoordinator) BeginChallenge(ctx context.Context, factorID string) (MfaChallenge, error) {
	if m == nil || m.provider == nil {
		return MfaChallenge{}, ErrProviderUnavailable
	}

	challengeID, err := m.provider.ChallengeFactor(ctx, factorID)
	if err != nil {
		m.svc.emitAudit(ctx, auditEventMFAFailure, false, "", "", "", err, func() map[string]string {
			return map[string]string{"stage": "challenge", "factor_id": factorID}
		})
		return MfaChallenge{}, fmt.Errorf("mfa challenge: %w", err)
	}

	challenge := MfaChallenge{
		FactorID:      factorID,
		ChallengeID:   challengeID,
		CorrelationID: uuid.NewString(),
		IssuedAt:      time.Now().UTC(),
	}

	m.mu.Lock()
	m.challenge = &challenge
	m.mu.Unlock()

	m.svc.metricInc(MetricMFARequired)
	m.svc.emitAudit(ctx, auditEventMFARequired, true, "", "", "", nil, func() map[string]string {
		return map[string]string{
			"factor_id":      factorID,
			"correlation_id": challenge.CorrelationID,
		}
	})
	return challenge, nil
}

// Verify describes the verify operation and its observable behavior.
//
// Verify submits a code against the outstanding challenge. Without one it
// returns ErrNoActiveChallenge. A rejected code keeps the challenge open
// so the caller can retry or issue a fresh one; verification is never
// auto-retried. On success the challenge is consumed and the upgraded
// session is returned; the session tracker observes the corresponding
// provider notification independently.
func (m *MfaCoordinator) Verify(ctx context.Context, code string) (*Session, error) {
	if m == nil || m.provider == nil {
		return nil, ErrProviderUnavailable
	}

	m.mu.Lock()
	challenge := m.challenge
	m.mu.Unlock()
	if challenge == nil {
		return nil, ErrNoActiveChallenge
	}

	session, err := m.provider.VerifyFactor(ctx, VerifyParams{
		FactorID:    challenge.FactorID,
		ChallengeID: challenge.ChallengeID,
		Code:        code,
	})
	if err != nil {
		m.svc.metricInc(MetricMFAFailure)
		m.svc.emitAudit(ctx, auditEventMFAFailure, false, "", "", "", ErrMFAVerificationFailed, func() map[string]string {
			return map[string]string{
				"stage":          "verify",
				"factor_id":      challenge.FactorID,
				"correlation_id": challenge.CorrelationID,
			}
		})
		return nil, fmt.Errorf("%w: %v", ErrMFAVerificationFailed, err)
	}

	m.consume(challenge.CorrelationID)

	userID := ""
	if session != nil {
		userID = session.UserID
	}
	m.svc.metricInc(MetricMFASuccess)
	m.svc.emitAudit(ctx, auditEventMFASuccess, true, "", userID, "", nil, func() map[string]string {
		return map[string]string{
			"factor_id":      challenge.FactorID,
			"correlation_id": challenge.CorrelationID,
		}
	})
	return session, nil
}

// Cancel describes the cancel operation and its observable behavior.
//
// Cancel drops the outstanding challenge without contacting the provider.
// An in-flight verify for the dropped challenge may still land provider
// side; its response is discarded here. Safe to call with no challenge
// outstanding.
func (m *MfaCoordinator) Cancel() {
	if m == nil {
		return
	}
	m.mu.Lock()
	had := m.challenge != nil
	m.challenge = nil
	m.mu.Unlock()

	if had {
		m.svc.emitAudit(context.Background(), auditEventMFACancelled, true, "", "", "", nil, nil)
	}
}

// Upgrade describes the upgrade operation and its observable behavior.
//
// Upgrade steps an existing AAL1 session up to AAL2. It issues a challenge
// exactly like BeginChallenge; the distinction is caller intent, and both
// converge on the same Verify contract.
func (m *MfaCoordinator) Upgrade(ctx context.Context, factorID string) (MfaChallenge, error) {
	if m == nil {
		return MfaChallenge{}, ErrProviderUnavailable
	}
	m.svc.emitAudit(ctx, auditEventMFAUpgradeStarted, true, "", "", "", nil, func() map[string]string {
		return map[string]string{"factor_id": factorID}
	})
	return m.BeginChallenge(ctx, factorID)
}

// consume clears the challenge only if it is still the one identified by
// correlationID, so a verify racing a cancel-and-reissue does not clobber
// the newer challenge.
func (m *MfaCoordinator) consume(correlationID string) {
	m.mu.Lock()
	if m.challenge != nil && m.challenge.CorrelationID == correlationID {
		m.challenge = nil
	}
	m.mu.Unlock()
}

// clearChallenge drops any outstanding challenge. The session tracker
// calls it when the provider reports a verified challenge, so a stale
// challenge cannot outlive its own success.
func (m *MfaCoordinator) clearChallenge() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.challenge = nil
	m.mu.Unlock()
}
