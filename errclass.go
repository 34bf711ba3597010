package authgate

import (
	"errors"
	"strings"
)

// Classification decides which provider failures count as credential
// guesses. Only classified failures increment attempt counters, so a
// provider outage can never mass-ban users. The cost is under-counting
// failure modes the allowlist does not name. Keep the lists narrow; do
// not broaden them without confirming the provider semantics.

// credentialErrorCodes match on provider-supplied error codes, the
// preferred, locale-independent signal.
var credentialErrorCodes = map[string]struct{}{
	"invalid_credentials": {},
	"invalid_grant":       {},
	"email_not_confirmed": {},
}

// credentialErrorPatterns is the message-substring fallback for providers
// that only expose English error text. Inherently fragile.
var credentialErrorPatterns = []string{
	"invalid login credentials",
	"invalid email or password",
	"email not confirmed",
}

// isCredentialFailure reports whether err is a rejected credential guess,
// as opposed to an infrastructure failure. Errors that are not a
// ProviderError are always infrastructure.
func isCredentialFailure(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}

	if pe.Code != "" {
		_, ok := credentialErrorCodes[strings.ToLower(pe.Code)]
		return ok
	}

	message := strings.ToLower(pe.Message)
	for _, pattern := range credentialErrorPatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}
