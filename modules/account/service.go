package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/google/uuid"

	"github.com/mkorchagin/accountsvc/pkg/file"
	"github.com/mkorchagin/accountsvc/pkg/logger"
)

// ResetNotifier delivers a password reset token to the account holder.
// Implementations must not persist the plaintext token.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// LogResetNotifier writes reset notifications to the log. Stands in for a
// mail delivery integration in development environments.
type LogResetNotifier struct {
	Logger *slog.Logger
}

func (n *LogResetNotifier) NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	n.Logger.InfoContext(ctx, "password reset requested",
		slog.String("email", email),
		slog.Time("expires_at", expiresAt),
		logger.Component("account"),
	)
	return nil
}

// AuthResult pairs a fresh session token with the authenticated account.
type AuthResult struct {
	Token   string
	Account *Account
}

// Service implements the account operations: registration, login, profile
// management, and the password reset flow.
type Service struct {
	cfg      Config
	storage  Storage
	hasher   *Hasher
	codec    *ResetTokenCodec
	sessions *SessionTokens
	files    file.Storage
	notifier ResetNotifier
	logger   *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithResetNotifier sets the reset token delivery mechanism.
func WithResetNotifier(n ResetNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewService creates the account service.
func NewService(cfg Config, storage Storage, files file.Storage, opts ...Option) (*Service, error) {
	hasher, err := NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionTokens(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		storage:  storage,
		hasher:   hasher,
		codec:    NewResetTokenCodec(),
		sessions: sessions,
		files:    files,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = &LogResetNotifier{Logger: s.logger}
	}

	return s, nil
}

// Sessions exposes the session token issuer for HTTP middleware wiring.
func (s *Service) Sessions() *SessionTokens {
	return s.sessions
}

// Register creates an account and returns a session token for it. An
// optional profile image is stored before the account record; the upload is
// cleaned up if persistence fails.
func (s *Service) Register(ctx context.Context, req RegisterRequest, image *multipart.FileHeader) (*AuthResult, error) {
	req.sanitize()
	if err := req.validate(s.cfg); err != nil {
		return nil, err
	}

	_, err := s.storage.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err == nil {
		return nil, ErrDuplicateIdentity
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	acct := &Account{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Preferences:  req.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if image != nil {
		url, key, err := s.saveImage(ctx, acct.ID, image)
		if err != nil {
			return nil, err
		}
		acct.ProfileImage = url
		acct.ProfileImageKey = key
	}

	if err := s.storage.Create(ctx, acct); err != nil {
		// Remove the orphaned upload; the account record is the source of truth.
		if acct.ProfileImageKey != "" {
			if delErr := s.files.Delete(ctx, acct.ProfileImageKey); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to clean up image after create failure",
					logger.AccountID(acct.ID.String()),
					logger.Error(delErr),
					logger.Component("account"),
				)
			}
		}
		return nil, err
	}

	token, err := s.sessions.Issue(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &AuthResult{Token: token, Account: acct}, nil
}

// Login verifies credentials and returns a session token. All failures
// surface as ErrInvalidCredentials to prevent account enumeration.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	req.sanitize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	acct, err := s.storage.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.hasher.Compare(acct.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &AuthResult{Token: token, Account: acct}, nil
}

// Profile returns the account for the given identifier.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.storage.FindByID(ctx, id)
}

// UpdateProfile applies profile changes and optionally replaces the profile
// image. The previous image object is deleted only after the record update
// succeeds.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest, image *multipart.FileHeader) (*Account, error) {
	req.sanitize()
	if err := req.validate(s.cfg); err != nil {
		return nil, err
	}

	current, err := s.storage.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update := ProfileUpdate{
		Username:    req.Username,
		Email:       req.Email,
		Preferences: req.Preferences,
	}

	if req.changesPassword() {
		if err := s.hasher.Compare(current.PasswordHash, req.CurrentPassword); err != nil {
			return nil, ErrWrongPassword
		}
		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = hash
	}

	if image != nil {
		url, key, err := s.saveImage(ctx, id, image)
		if err != nil {
			return nil, err
		}
		update.ProfileImage = &url
		update.ProfileImageKey = &key
	}

	acct, err := s.storage.UpdateProfile(ctx, id, update)
	if err != nil {
		if update.ProfileImageKey != nil {
			if delErr := s.files.Delete(ctx, *update.ProfileImageKey); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to clean up image after update failure",
					logger.AccountID(id.String()),
					logger.Error(delErr),
					logger.Component("account"),
				)
			}
		}
		return nil, err
	}

	// Best effort removal of the replaced object.
	if image != nil && current.ProfileImageKey != "" && current.ProfileImageKey != acct.ProfileImageKey {
		if delErr := s.files.Delete(ctx, current.ProfileImageKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced profile image",
				logger.AccountID(id.String()),
				logger.Error(delErr),
				logger.Component("account"),
			)
		}
	}

	return acct, nil
}

// DeleteProfileImage removes the profile image object and clears it from
// the account. A missing image is a no-op. The object is deleted before the
// record update so a storage failure never leaves the account pointing at a
// removed image.
func (s *Service) DeleteProfileImage(ctx context.Context, id uuid.UUID) (*Account, error) {
	current, err := s.storage.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.ProfileImage == "" {
		return current, nil
	}

	if current.ProfileImageKey != "" {
		if err := s.files.Delete(ctx, current.ProfileImageKey); err != nil {
			return nil, fmt.Errorf("failed to delete profile image object: %w", err)
		}
	}

	empty := ""
	return s.storage.UpdateProfile(ctx, id, ProfileUpdate{
		ProfileImage:    &empty,
		ProfileImageKey: &empty,
	})
}

// InitiateReset starts the password reset flow. Returns nil whether or not
// the email belongs to an account, so callers can answer with the same
// acknowledgment either way.
func (s *Service) InitiateReset(ctx context.Context, req ForgotPasswordRequest) error {
	req.sanitize()
	if err := req.validate(); err != nil {
		return err
	}

	acct, err := s.storage.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.InfoContext(ctx, "reset requested for unknown email",
				logger.Component("account"))
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	token, err := s.codec.Generate()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.storage.SetResetToken(ctx, acct.ID, token.Digest, expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, acct.Email, token.Plaintext, expiresAt); err != nil {
		return fmt.Errorf("failed to deliver reset token: %w", err)
	}

	return nil
}

// CompleteReset consumes a reset token and installs the new password. The
// token is single use: concurrent attempts with the same token race on the
// storage update and only one succeeds.
func (s *Service) CompleteReset(ctx context.Context, req ResetPasswordRequest) (*Account, error) {
	req.sanitize()
	if err := req.validate(s.cfg); err != nil {
		return nil, err
	}

	digest := s.codec.Digest(req.Token)
	acct, err := s.storage.FindByResetDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	if !s.codec.Verify(req.Token, acct.ResetTokenDigest) {
		return nil, ErrResetTokenInvalid
	}

	if time.Now().After(acct.ResetTokenExpires) {
		if clearErr := s.storage.ClearResetToken(ctx, acct.ID); clearErr != nil {
			s.logger.WarnContext(ctx, "failed to clear expired reset token",
				logger.AccountID(acct.ID.String()),
				logger.Error(clearErr),
				logger.Component("account"),
			)
		}
		return nil, ErrResetTokenExpired
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	if err := s.storage.CompletePasswordReset(ctx, acct.ID, digest, hash); err != nil {
		return nil, err
	}

	acct.PasswordHash = hash
	acct.ResetTokenDigest = ""
	acct.ResetTokenExpires = time.Time{}
	return acct, nil
}

// saveImage validates and stores a profile image, returning its public URL
// and storage key.
func (s *Service) saveImage(ctx context.Context, id uuid.UUID, fh *multipart.FileHeader) (url, key string, err error) {
	if err := file.ValidateSize(fh, s.cfg.MaxImageSize); err != nil {
		return "", "", ErrImageTooLarge
	}
	if !file.IsImage(fh) {
		return "", "", ErrNotAnImage
	}

	// Unique object name per upload so a replaced image never serves stale
	// cached content under the same URL.
	ext := file.GetExtension(fh)
	key = fmt.Sprintf("accounts/%s/%s%s", id, uuid.NewString(), ext)

	saved, err := s.files.Save(ctx, fh, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to store profile image: %w", err)
	}

	return s.files.URL(saved.RelativePath), saved.RelativePath, nil
}
