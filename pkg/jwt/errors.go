package jwt

import "errors"

// Token validation failure reasons. The middleware never reveals which one
// occurred to the client; they exist for internal branching and log fields.
var (
	ErrMissingSigningKey = errors.New("missing signing key")
	ErrMissingClaims     = errors.New("missing claims")
	ErrMissingToken      = errors.New("missing token")
	ErrMalformedToken    = errors.New("malformed token")
	ErrExpiredToken      = errors.New("token expired")
	ErrInvalidSignature  = errors.New("invalid token signature")
)

// Reason maps a token validation error to a stable label for log fields.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "signature-invalid"
	default:
		return "malformed"
	}
}
