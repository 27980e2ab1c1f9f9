package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// resetTokenBytes gives 256 bits of entropy, hex-encoded to 64 characters.
const resetTokenBytes = 32

// ResetToken pairs the plaintext token handed to the account holder with the
// digest that gets persisted. Only the digest ever touches storage.
type ResetToken struct {
	Plaintext string
	Digest    string
}

// ResetTokenCodec generates opaque password reset tokens and derives the
// SHA-256 digests stored in their place. Stateless and safe for concurrent
// use.
type ResetTokenCodec struct{}

// NewResetTokenCodec creates a reset token codec.
func NewResetTokenCodec() *ResetTokenCodec {
	return &ResetTokenCodec{}
}

// Generate produces a fresh random token and its storage digest.
func (c *ResetTokenCodec) Generate() (ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, fmt.Errorf("failed to generate reset token: %w", err)
	}

	plaintext := hex.EncodeToString(buf)
	return ResetToken{
		Plaintext: plaintext,
		Digest:    c.Digest(plaintext),
	}, nil
}

// Digest derives the storage digest for a plaintext token.
func (c *ResetTokenCodec) Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Verify checks a presented token against a stored digest in constant time.
func (c *ResetTokenCodec) Verify(plaintext, digest string) bool {
	computed := c.Digest(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
