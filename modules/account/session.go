package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkorchagin/accountsvc/pkg/jwt"
)

// SessionTokens issues and verifies signed session tokens carrying the
// account identifier as the subject claim.
type SessionTokens struct {
	jwtSvc *jwt.Service
	ttl    time.Duration
}

// NewSessionTokens creates a session token issuer with the given secret and
// token lifetime.
func NewSessionTokens(secret string, ttl time.Duration) (*SessionTokens, error) {
	svc, err := jwt.NewFromString(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token service: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session token ttl must be positive, got %s", ttl)
	}
	return &SessionTokens{jwtSvc: svc, ttl: ttl}, nil
}

// Issue creates a signed session token for the account.
func (s *SessionTokens) Issue(accountID uuid.UUID) (string, error) {
	now := time.Now()
	return s.jwtSvc.Generate(jwt.StandardClaims{
		Subject:   accountID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
}

// Verify validates a session token and returns the account identifier it was
// issued for.
func (s *SessionTokens) Verify(token string) (uuid.UUID, error) {
	var claims jwt.StandardClaims
	if err := s.jwtSvc.Parse(token, &claims); err != nil {
		return uuid.Nil, err
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, jwt.ErrMalformedToken
	}

	return accountID, nil
}

// JWTService exposes the underlying token service for HTTP middleware wiring.
func (s *SessionTokens) JWTService() *jwt.Service {
	return s.jwtSvc
}
