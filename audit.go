package authgate

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/procyonhq/authgate/internal/audit"
)

// AuditEvent is the record delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Sinks run on the dispatcher
// goroutine and should not block.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel for the host to drain.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per event line.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventSignInSuccess        = "signin_success"
	auditEventSignInFailure        = "signin_failure"
	auditEventSignInBanned         = "signin_banned"
	auditEventSignUpAttempt        = "signup_attempt"
	auditEventMagicLinkRequested   = "magic_link_requested"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventMFARequired          = "mfa_required"
	auditEventMFASuccess           = "mfa_success"
	auditEventMFAFailure           = "mfa_failure"
	auditEventMFACancelled         = "mfa_cancelled"
	auditEventMFAUpgradeStarted    = "mfa_upgrade_started"
	auditEventSessionRestored      = "session_restored"
	auditEventSessionChanged       = "session_changed"
	auditEventSignOut              = "signout"
	auditEventAccountDeleted       = "account_deleted"
	auditEventAdvisoryDegraded     = "advisory_degraded"
)

func (s *Service) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identifier string,
	userID string,
	kind AttemptKind,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Identifier: identifier,
		UserID:     userID,
		Kind:       string(kind),
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if err != nil {
		event.Error = auditErrorLabel(err)
	}

	s.audit.Emit(ctx, event)
}

// auditErrorLabel maps an error to a stable audit vocabulary rather than
// leaking raw provider text into the trail.
func auditErrorLabel(err error) string {
	switch {
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNoActiveChallenge):
		return "no_active_challenge"
	case errors.Is(err, ErrMFAVerificationFailed):
		return "mfa_invalid"
	case errors.Is(err, ErrNoSession):
		return "no_session"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code
	}
	return "internal_error"
}
