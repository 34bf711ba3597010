package internaldefs

import (
	authgate "github.com/procyonhq/authgate"
)

// CounterDef binds a MetricID to its exported name and help text. Both
// exporters read from this table so names can never drift between them.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs is the export name table, in render order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricSignInSuccess, Name: "authgate_signin_success_total", Help: "Successful password sign-ins."},
	{ID: authgate.MetricSignInFailure, Name: "authgate_signin_failure_total", Help: "Failed password sign-ins, counted and uncounted."},
	{ID: authgate.MetricSignInBanned, Name: "authgate_signin_banned_total", Help: "Sign-in attempts rejected by an active ban."},
	{ID: authgate.MetricSignUp, Name: "authgate_signup_total", Help: "Account creation attempts."},
	{ID: authgate.MetricMagicLinkRequested, Name: "authgate_magic_link_requested_total", Help: "Magic-link requests."},
	{ID: authgate.MetricPasswordResetRequested, Name: "authgate_password_reset_requested_total", Help: "Password reset requests."},
	{ID: authgate.MetricMFARequired, Name: "authgate_mfa_required_total", Help: "Issued second-factor challenges."},
	{ID: authgate.MetricMFASuccess, Name: "authgate_mfa_success_total", Help: "Successful second-factor verifications."},
	{ID: authgate.MetricMFAFailure, Name: "authgate_mfa_failure_total", Help: "Failed second-factor verifications."},
	{ID: authgate.MetricMFAUpgradeRequired, Name: "authgate_mfa_upgrade_required_total", Help: "AAL1 sessions flagged for step-up."},
	{ID: authgate.MetricAdvisoryDegraded, Name: "authgate_advisory_degraded_total", Help: "Swallowed remote advisory failures."},
	{ID: authgate.MetricSessionChanged, Name: "authgate_session_changed_total", Help: "Provider session change notifications."},
	{ID: authgate.MetricSignOut, Name: "authgate_signout_total", Help: "Sign-out operations."},
}
