package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkorchagin/accountsvc/modules/account"
	"github.com/mkorchagin/accountsvc/pkg/file"
	"github.com/mkorchagin/accountsvc/pkg/validator"
)

func testConfig() account.Config {
	return account.Config{
		JWTSecret:      "service-test-secret-32-bytes-long",
		SessionTTL:     7 * 24 * time.Hour,
		ResetTokenTTL:  time.Hour,
		BcryptCost:     10,
		MaxImageSize:   5 << 20,
		PasswordMinLen: 6,
		MinPreferences: 2,
	}
}

func newService(t *testing.T, storage *MockStorage, files *MockFileStorage, opts ...account.Option) *account.Service {
	t.Helper()

	svc, err := account.NewService(testConfig(), storage, files, opts...)
	require.NoError(t, err)
	return svc
}

func hashOf(t *testing.T, password string) []byte {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13}

func imageFileHeader(t *testing.T) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["image"][0]
}

func TestServiceRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates account and issues token", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		files := &MockFileStorage{}
		svc := newService(t, storage, files)

		storage.On("FindByEmailOrUsername", mock.Anything, "user@example.com", "alice").
			Return(nil, account.ErrNotFound)

		var created *account.Account
		storage.On("Create", mock.Anything, mock.AnythingOfType("*account.Account")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*account.Account)
			}).
			Return(nil)

		result, err := svc.Register(context.Background(), account.RegisterRequest{
			Username:    "alice",
			Email:       "  User@Example.COM ",
			Password:    "secret123",
			Preferences: []string{"dark", "compact"},
		}, nil)
		require.NoError(t, err)

		require.NotNil(t, created)
		assert.Equal(t, "user@example.com", created.Email)
		assert.Equal(t, "alice", created.Username)
		assert.NotEqual(t, uuid.Nil, created.ID)
		require.NoError(t, bcrypt.CompareHashAndPassword(created.PasswordHash, []byte("secret123")))

		require.NotEmpty(t, result.Token)
		got, err := svc.Sessions().Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got)

		storage.AssertExpectations(t)
	})

	t.Run("duplicate identity", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByEmailOrUsername", mock.Anything, "taken@example.com", "alice").
			Return(&account.Account{ID: uuid.New()}, nil)

		_, err := svc.Register(context.Background(), account.RegisterRequest{
			Username: "alice",
			Email:    "taken@example.com",
			Password: "secret123",
		}, nil)
		require.ErrorIs(t, err, account.ErrDuplicateIdentity)
		storage.AssertNotCalled(t, "Create")
	})

	t.Run("validation failures", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, &MockStorage{}, &MockFileStorage{})

		_, err := svc.Register(context.Background(), account.RegisterRequest{
			Username: "",
			Email:    "not-an-email",
			Password: "short",
		}, nil)
		require.True(t, validator.IsValidationError(err))

		ve := validator.ExtractValidationErrors(err)
		assert.True(t, ve.Has("username"))
		assert.True(t, ve.Has("email"))
		assert.True(t, ve.Has("password"))
	})

	t.Run("username length bounds", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, &MockStorage{}, &MockFileStorage{})

		_, err := svc.Register(context.Background(), account.RegisterRequest{
			Username: "ab",
			Email:    "user@example.com",
			Password: "secret123",
		}, nil)
		require.True(t, validator.IsValidationError(err))
		assert.True(t, validator.ExtractValidationErrors(err).Has("username"))

		_, err = svc.Register(context.Background(), account.RegisterRequest{
			Username: strings.Repeat("a", 31),
			Email:    "user@example.com",
			Password: "secret123",
		}, nil)
		require.True(t, validator.IsValidationError(err))
		assert.True(t, validator.ExtractValidationErrors(err).Has("username"))
	})

	t.Run("single preference rejected", func(t *testing.T) {
		t.Parallel()

		svc := newService(t, &MockStorage{}, &MockFileStorage{})

		_, err := svc.Register(context.Background(), account.RegisterRequest{
			Username:    "alice",
			Email:       "user@example.com",
			Password:    "secret123",
			Preferences: []string{"dark"},
		}, nil)
		require.True(t, validator.IsValidationError(err))
		assert.True(t, validator.ExtractValidationErrors(err).Has("preferences"))
	})

	t.Run("image uploaded then cleaned up on create failure", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		files := &MockFileStorage{}
		svc := newService(t, storage, files)

		storage.On("FindByEmailOrUsername", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, account.ErrNotFound)

		files.On("Save", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
			Return(&file.File{RelativePath: "accounts/x/avatar.png"}, nil)
		files.On("URL", "accounts/x/avatar.png").
			Return("https://cdn.example.com/accounts/x/avatar.png")

		storage.On("Create", mock.Anything, mock.Anything).
			Return(account.ErrDuplicateIdentity)
		files.On("Delete", mock.Anything, "accounts/x/avatar.png").Return(nil)

		_, err := svc.Register(context.Background(), account.RegisterRequest{
			Username: "alice",
			Email:    "user@example.com",
			Password: "secret123",
		}, imageFileHeader(t))
		require.ErrorIs(t, err, account.ErrDuplicateIdentity)

		files.AssertCalled(t, "Delete", mock.Anything, "accounts/x/avatar.png")
	})

	t.Run("non-image upload rejected", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByEmailOrUsername", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, account.ErrNotFound)

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fw, err := w.CreateFormFile("image", "notes.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte("plain text, definitely not an image"))
		require.NoError(t, err)
		require.NoError(t, w.Close())
		req := httptest.NewRequest("POST", "/", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		require.NoError(t, req.ParseMultipartForm(1<<20))

		_, err = svc.Register(context.Background(), account.RegisterRequest{
			Username: "alice",
			Email:    "user@example.com",
			Password: "secret123",
		}, req.MultipartForm.File["image"][0])
		require.ErrorIs(t, err, account.ErrNotAnImage)
	})
}

func TestServiceLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		acct := &account.Account{
			ID:           uuid.New(),
			Email:        "user@example.com",
			PasswordHash: hashOf(t, "secret123"),
		}
		storage.On("FindByEmail", mock.Anything, "user@example.com").Return(acct, nil)

		result, err := svc.Login(context.Background(), account.LoginRequest{
			Email:    "User@Example.com",
			Password: "secret123",
		})
		require.NoError(t, err)

		got, err := svc.Sessions().Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByEmail", mock.Anything, "user@example.com").Return(&account.Account{
			ID:           uuid.New(),
			Email:        "user@example.com",
			PasswordHash: hashOf(t, "secret123"),
		}, nil)

		_, err := svc.Login(context.Background(), account.LoginRequest{
			Email:    "user@example.com",
			Password: "wrong",
		})
		require.ErrorIs(t, err, account.ErrInvalidCredentials)
	})

	t.Run("unknown email yields same error", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByEmail", mock.Anything, "ghost@example.com").
			Return(nil, account.ErrNotFound)

		_, err := svc.Login(context.Background(), account.LoginRequest{
			Email:    "ghost@example.com",
			Password: "whatever",
		})
		require.ErrorIs(t, err, account.ErrInvalidCredentials)
	})
}

func TestServiceInitiateReset(t *testing.T) {
	t.Parallel()

	t.Run("stores digest not plaintext", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		notifier := &MockResetNotifier{}
		svc := newService(t, storage, &MockFileStorage{}, account.WithResetNotifier(notifier))

		acct := &account.Account{ID: uuid.New(), Email: "user@example.com"}
		storage.On("FindByEmail", mock.Anything, "user@example.com").Return(acct, nil)

		var storedDigest string
		var storedExpiry time.Time
		storage.On("SetResetToken", mock.Anything, acct.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				storedDigest = args.String(2)
				storedExpiry = args.Get(3).(time.Time)
			}).
			Return(nil)

		var sentToken string
		notifier.On("NotifyPasswordReset", mock.Anything, "user@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				sentToken = args.String(2)
			}).
			Return(nil)

		require.NoError(t, svc.InitiateReset(context.Background(), account.ForgotPasswordRequest{
			Email: "user@example.com",
		}))

		assert.NotEmpty(t, sentToken)
		assert.NotEqual(t, sentToken, storedDigest)
		assert.Equal(t, account.NewResetTokenCodec().Digest(sentToken), storedDigest)
		assert.WithinDuration(t, time.Now().Add(time.Hour), storedExpiry, time.Minute)
	})

	t.Run("unknown email acknowledged without side effects", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByEmail", mock.Anything, "ghost@example.com").
			Return(nil, account.ErrNotFound)

		require.NoError(t, svc.InitiateReset(context.Background(), account.ForgotPasswordRequest{
			Email: "ghost@example.com",
		}))
		storage.AssertNotCalled(t, "SetResetToken")
	})
}

func TestServiceCompleteReset(t *testing.T) {
	t.Parallel()

	codec := account.NewResetTokenCodec()

	t.Run("consumes token and updates password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		token, err := codec.Generate()
		require.NoError(t, err)

		acct := &account.Account{
			ID:                uuid.New(),
			Email:             "user@example.com",
			ResetTokenDigest:  token.Digest,
			ResetTokenExpires: time.Now().Add(30 * time.Minute),
		}
		storage.On("FindByResetDigest", mock.Anything, token.Digest).Return(acct, nil)

		var newHash []byte
		storage.On("CompletePasswordReset", mock.Anything, acct.ID, token.Digest, mock.AnythingOfType("[]uint8")).
			Run(func(args mock.Arguments) {
				newHash = args.Get(3).([]byte)
			}).
			Return(nil)

		updated, err := svc.CompleteReset(context.Background(), account.ResetPasswordRequest{
			Token:    token.Plaintext,
			Password: "brand-new-password",
		})
		require.NoError(t, err)

		require.NoError(t, bcrypt.CompareHashAndPassword(newHash, []byte("brand-new-password")))
		assert.Empty(t, updated.ResetTokenDigest)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		storage.On("FindByResetDigest", mock.Anything, mock.AnythingOfType("string")).
			Return(nil, account.ErrNotFound)

		_, err := svc.CompleteReset(context.Background(), account.ResetPasswordRequest{
			Token:    "0000000000000000000000000000000000000000000000000000000000000000",
			Password: "brand-new-password",
		})
		require.ErrorIs(t, err, account.ErrResetTokenInvalid)
	})

	t.Run("expired token cleared", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		token, err := codec.Generate()
		require.NoError(t, err)

		acct := &account.Account{
			ID:                uuid.New(),
			ResetTokenDigest:  token.Digest,
			ResetTokenExpires: time.Now().Add(-time.Minute),
		}
		storage.On("FindByResetDigest", mock.Anything, token.Digest).Return(acct, nil)
		storage.On("ClearResetToken", mock.Anything, acct.ID).Return(nil)

		_, err = svc.CompleteReset(context.Background(), account.ResetPasswordRequest{
			Token:    token.Plaintext,
			Password: "brand-new-password",
		})
		require.ErrorIs(t, err, account.ErrResetTokenExpired)

		storage.AssertCalled(t, "ClearResetToken", mock.Anything, acct.ID)
		storage.AssertNotCalled(t, "CompletePasswordReset")
	})

	t.Run("lost race surfaces as invalid token", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		token, err := codec.Generate()
		require.NoError(t, err)

		acct := &account.Account{
			ID:                uuid.New(),
			ResetTokenDigest:  token.Digest,
			ResetTokenExpires: time.Now().Add(time.Hour),
		}
		storage.On("FindByResetDigest", mock.Anything, token.Digest).Return(acct, nil)
		storage.On("CompletePasswordReset", mock.Anything, acct.ID, token.Digest, mock.Anything).
			Return(account.ErrResetTokenInvalid)

		_, err = svc.CompleteReset(context.Background(), account.ResetPasswordRequest{
			Token:    token.Plaintext,
			Password: "brand-new-password",
		})
		require.ErrorIs(t, err, account.ErrResetTokenInvalid)
	})
}

func TestServiceProfile(t *testing.T) {
	t.Parallel()

	t.Run("update profile replaces image and deletes old object", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		files := &MockFileStorage{}
		svc := newService(t, storage, files)

		id := uuid.New()
		current := &account.Account{
			ID:              id,
			Username:        "alice",
			ProfileImage:    "https://cdn.example.com/old.png",
			ProfileImageKey: "accounts/old.png",
		}
		storage.On("FindByID", mock.Anything, id).Return(current, nil)

		files.On("Save", mock.Anything, mock.Anything, mock.AnythingOfType("string")).
			Return(&file.File{RelativePath: "accounts/new.png"}, nil)
		files.On("URL", "accounts/new.png").Return("https://cdn.example.com/new.png")

		updated := &account.Account{
			ID:              id,
			Username:        "alice2",
			ProfileImage:    "https://cdn.example.com/new.png",
			ProfileImageKey: "accounts/new.png",
		}
		storage.On("UpdateProfile", mock.Anything, id, mock.AnythingOfType("account.ProfileUpdate")).
			Return(updated, nil)
		files.On("Delete", mock.Anything, "accounts/old.png").Return(nil)

		username := "alice2"
		acct, err := svc.UpdateProfile(context.Background(), id, account.UpdateProfileRequest{
			Username: &username,
		}, imageFileHeader(t))
		require.NoError(t, err)
		assert.Equal(t, "alice2", acct.Username)

		files.AssertCalled(t, "Delete", mock.Anything, "accounts/old.png")
	})

	t.Run("change password with correct current password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		id := uuid.New()
		current := &account.Account{
			ID:           id,
			Username:     "alice",
			PasswordHash: hashOf(t, "old-password"),
		}
		storage.On("FindByID", mock.Anything, id).Return(current, nil)

		var captured account.ProfileUpdate
		storage.On("UpdateProfile", mock.Anything, id, mock.MatchedBy(func(u account.ProfileUpdate) bool {
			captured = u
			return u.PasswordHash != nil
		})).Return(current, nil)

		_, err := svc.UpdateProfile(context.Background(), id, account.UpdateProfileRequest{
			CurrentPassword: "old-password",
			NewPassword:     "brand-new-password",
		}, nil)
		require.NoError(t, err)
		require.NoError(t, bcrypt.CompareHashAndPassword(captured.PasswordHash, []byte("brand-new-password")))
	})

	t.Run("wrong current password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		id := uuid.New()
		storage.On("FindByID", mock.Anything, id).Return(&account.Account{
			ID:           id,
			PasswordHash: hashOf(t, "old-password"),
		}, nil)

		_, err := svc.UpdateProfile(context.Background(), id, account.UpdateProfileRequest{
			CurrentPassword: "not-the-password",
			NewPassword:     "brand-new-password",
		}, nil)
		require.ErrorIs(t, err, account.ErrWrongPassword)
		storage.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new password without current password", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		svc := newService(t, storage, &MockFileStorage{})

		_, err := svc.UpdateProfile(context.Background(), uuid.New(), account.UpdateProfileRequest{
			NewPassword: "brand-new-password",
		}, nil)

		ve := validator.ExtractValidationErrors(err)
		require.NotEmpty(t, ve)
		assert.True(t, ve.Has("currentPassword"))
	})

	t.Run("delete image without one set is a no-op", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		files := &MockFileStorage{}
		svc := newService(t, storage, files)

		id := uuid.New()
		storage.On("FindByID", mock.Anything, id).Return(&account.Account{ID: id}, nil)

		acct, err := svc.DeleteProfileImage(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, acct.ID)
		files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		storage.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("delete image fails when storage deletion fails", func(t *testing.T) {
		t.Parallel()

		storage := &MockStorage{}
		files := &MockFileStorage{}
		svc := newService(t, storage, files)

		id := uuid.New()
		storage.On("FindByID", mock.Anything, id).Return(&account.Account{
			ID:              id,
			ProfileImage:    "https://cdn.example.com/avatar.png",
			ProfileImageKey: "accounts/avatar.png",
		}, nil)
		files.On("Delete", mock.Anything, "accounts/avatar.png").
			Return(errors.New("object storage unavailable"))

		_, err := svc.DeleteProfileImage(context.Background(), id)
		require.Error(t, err)
		storage.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("public profile hides secrets", func(t *testing.T) {
		t.Parallel()

		acct := &account.Account{
			ID:               uuid.New(),
			Username:         "alice",
			Email:            "user@example.com",
			PasswordHash:     []byte("hash"),
			ResetTokenDigest: "digest",
		}

		profile := acct.PublicProfile()
		assert.Equal(t, acct.ID.String(), profile.ID)
		assert.Equal(t, "alice", profile.Username)
		assert.NotNil(t, profile.Preferences)

		data, err := json.Marshal(profile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hash")
		assert.NotContains(t, string(data), "digest")
	})
}
