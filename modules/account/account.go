package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is the identity record. Email and username are stored normalized
// and compared case-insensitively by the storage layer. Serialization lives
// with the storage implementation, not here.
type Account struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash []byte
	// ProfileImage is the public URL; ProfileImageKey is the storage object
	// key needed to delete or replace the underlying file.
	ProfileImage    string
	ProfileImageKey string
	Preferences     []string

	// Reset token digest only; the plaintext token is never persisted.
	ResetTokenDigest  string
	ResetTokenExpires time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveResetToken reports whether an unexpired reset token is pending.
func (a *Account) HasActiveResetToken(now time.Time) bool {
	return a.ResetTokenDigest != "" && now.Before(a.ResetTokenExpires)
}

// Profile is the client-facing projection of an account. The password hash
// and reset token fields never leave the service boundary.
type Profile struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	ProfileImage string   `json:"profileImage,omitempty"`
	Preferences  []string `json:"preferences"`
}

// PublicProfile converts an account to its client-facing projection.
func (a *Account) PublicProfile() Profile {
	prefs := a.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	return Profile{
		ID:           a.ID.String(),
		Username:     a.Username,
		Email:        a.Email,
		ProfileImage: a.ProfileImage,
		Preferences:  prefs,
	}
}
