package authgate

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// assuranceFromToken reads the "aal" claim from a provider access token.
// The parse is deliberately unverified: the token was issued to us by the
// provider over an authenticated channel, and signature verification is
// the provider's own guarantee. A malformed token yields Unknown.
func assuranceFromToken(accessToken string) AssuranceLevel {
	if accessToken == "" {
		return AssuranceUnknown
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return AssuranceUnknown
	}

	raw, _ := claims["aal"].(string)
	switch strings.ToLower(raw) {
	case "aal1":
		return AAL1
	case "aal2":
		return AAL2
	default:
		return AssuranceUnknown
	}
}

// sessionAssurance resolves a session's assurance level, preferring the
// provider-reported field and falling back to the access token claim.
func sessionAssurance(session *Session) AssuranceLevel {
	if session == nil {
		return AssuranceUnknown
	}
	if session.AssuranceLevel != AssuranceUnknown {
		return session.AssuranceLevel
	}
	return assuranceFromToken(session.AccessToken)
}
