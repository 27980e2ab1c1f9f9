package account

import "errors"

// General account errors
var (
	ErrNotFound           = errors.New("account not found")
	ErrDuplicateIdentity  = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// Reset token errors
var (
	ErrResetTokenInvalid = errors.New("invalid reset token")
	ErrResetTokenExpired = errors.New("reset token expired")
)

// Profile image errors
var (
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	ErrImageTooLarge = errors.New("image exceeds maximum allowed size")
)
