package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileUpdate carries the mutable profile fields. Nil pointers mean the
// field is left unchanged.
type ProfileUpdate struct {
	Username        *string
	Email           *string
	Preferences     *[]string
	ProfileImage    *string
	ProfileImageKey *string

	// PasswordHash replaces the stored hash when non-nil.
	PasswordHash []byte
}

// Storage defines the persistence operations required by the account
// service. Implementations must treat email and username comparisons
// case-insensitively and must apply every write to a single account record
// atomically.
type Storage interface {
	// Create persists a new account. Returns ErrDuplicateIdentity when the
	// email or username is already taken.
	Create(ctx context.Context, acct *Account) error

	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*Account, error)

	// FindByResetDigest locates the account holding an outstanding reset
	// token digest. Returns ErrNotFound when no account holds it.
	FindByResetDigest(ctx context.Context, digest string) (*Account, error)

	// UpdateProfile applies the non-nil fields of update. Returns
	// ErrDuplicateIdentity when a username or email change collides.
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*Account, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error

	// SetResetToken stores a reset token digest and expiry, replacing any
	// previous outstanding token.
	SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error

	// ClearResetToken removes any outstanding reset token.
	ClearResetToken(ctx context.Context, id uuid.UUID) error

	// CompletePasswordReset atomically replaces the password hash and clears
	// the reset token, but only if the given digest is still the outstanding
	// one. Returns ErrResetTokenInvalid when another writer consumed the
	// token first.
	CompletePasswordReset(ctx context.Context, id uuid.UUID, digest string, passwordHash []byte) error
}
