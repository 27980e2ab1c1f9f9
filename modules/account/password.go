package account

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// minBcryptCost is the floor for password hashing. Lower costs are rejected
// rather than silently raised so misconfiguration is visible at startup.
const minBcryptCost = 10

// Hasher produces and verifies salted password hashes using bcrypt.
// Safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher creates a password hasher with the given bcrypt cost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < minBcryptCost {
		return nil, fmt.Errorf("bcrypt cost %d below minimum %d", cost, minBcryptCost)
	}
	if cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d above maximum %d", cost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash derives a salted hash from the plaintext password. Each call produces
// a distinct hash even for identical inputs.
func (h *Hasher) Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// Compare checks the plaintext password against a stored hash. Returns
// ErrInvalidCredentials on mismatch so callers never branch on bcrypt
// internals.
func (h *Hasher) Compare(hash []byte, password string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
