package account_test

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mkorchagin/accountsvc/modules/account"
	"github.com/mkorchagin/accountsvc/pkg/file"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Create(ctx context.Context, acct *account.Account) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}

func (m *MockStorage) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if acct := args.Get(0); acct != nil {
		return acct.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	args := m.Called(ctx, email)
	if acct := args.Get(0); acct != nil {
		return acct.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) FindByEmailOrUsername(ctx context.Context, email, username string) (*account.Account, error) {
	args := m.Called(ctx, email, username)
	if acct := args.Get(0); acct != nil {
		return acct.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) FindByResetDigest(ctx context.Context, digest string) (*account.Account, error) {
	args := m.Called(ctx, digest)
	if acct := args.Get(0); acct != nil {
		return acct.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) UpdateProfile(ctx context.Context, id uuid.UUID, update account.ProfileUpdate) (*account.Account, error) {
	args := m.Called(ctx, id, update)
	if acct := args.Get(0); acct != nil {
		return acct.(*account.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStorage) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockStorage) SetResetToken(ctx context.Context, id uuid.UUID, digest string, expiresAt time.Time) error {
	args := m.Called(ctx, id, digest, expiresAt)
	return args.Error(0)
}

func (m *MockStorage) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CompletePasswordReset(ctx context.Context, id uuid.UUID, digest string, passwordHash []byte) error {
	args := m.Called(ctx, id, digest, passwordHash)
	return args.Error(0)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, fh *multipart.FileHeader, path string) (*file.File, error) {
	args := m.Called(ctx, fh, path)
	if f := args.Get(0); f != nil {
		return f.(*file.File), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFileStorage) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockFileStorage) Exists(ctx context.Context, path string) bool {
	args := m.Called(ctx, path)
	return args.Bool(0)
}

func (m *MockFileStorage) URL(path string) string {
	args := m.Called(path)
	return args.String(0)
}

type MockResetNotifier struct {
	mock.Mock
}

func (m *MockResetNotifier) NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	args := m.Called(ctx, email, token, expiresAt)
	return args.Error(0)
}
