package account

import (
	"github.com/mkorchagin/accountsvc/pkg/sanitizer"
	"github.com/mkorchagin/accountsvc/pkg/validator"
)

// RegisterRequest carries a new account's identity and credentials.
type RegisterRequest struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Preferences []string `json:"preferences"`
}

func (r *RegisterRequest) sanitize() {
	r.Username = sanitizer.Trim(r.Username)
	r.Email = sanitizer.NormalizeEmail(r.Email)
	r.Preferences = sanitizer.CleanStringSlice(r.Preferences)
}

func (r *RegisterRequest) validate(cfg Config) error {
	rules := []validator.Rule{
		validator.RequiredString("username", r.Username),
		validator.MinLenString("username", r.Username, 3),
		validator.MaxLenString("username", r.Username, 30),
		validator.ValidEmail("email", r.Email),
		validator.MinLenString("password", r.Password, cfg.PasswordMinLen),
		validator.MaxLenString("password", r.Password, 128),
	}
	if len(r.Preferences) > 0 {
		rules = append(rules, validator.MinLenSlice("preferences", r.Preferences, cfg.MinPreferences))
	}
	return validator.Apply(rules...)
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) sanitize() {
	r.Email = sanitizer.NormalizeEmail(r.Email)
}

func (r *LoginRequest) validate() error {
	return validator.Apply(
		validator.ValidEmail("email", r.Email),
		validator.RequiredString("password", r.Password),
	)
}

// UpdateProfileRequest carries profile mutations. Nil fields stay unchanged.
// A password change requires the current password alongside the new one.
type UpdateProfileRequest struct {
	Username        *string   `json:"username"`
	Email           *string   `json:"email"`
	Preferences     *[]string `json:"preferences"`
	CurrentPassword string    `json:"currentPassword"`
	NewPassword     string    `json:"newPassword"`
}

func (r *UpdateProfileRequest) sanitize() {
	if r.Username != nil {
		trimmed := sanitizer.Trim(*r.Username)
		r.Username = &trimmed
	}
	if r.Email != nil {
		normalized := sanitizer.NormalizeEmail(*r.Email)
		r.Email = &normalized
	}
	if r.Preferences != nil {
		cleaned := sanitizer.CleanStringSlice(*r.Preferences)
		r.Preferences = &cleaned
	}
}

func (r *UpdateProfileRequest) changesPassword() bool {
	return r.NewPassword != "" || r.CurrentPassword != ""
}

func (r *UpdateProfileRequest) validate(cfg Config) error {
	var rules []validator.Rule
	if r.Username != nil {
		rules = append(rules,
			validator.RequiredString("username", *r.Username),
			validator.MinLenString("username", *r.Username, 3),
			validator.MaxLenString("username", *r.Username, 30),
		)
	}
	if r.Email != nil {
		rules = append(rules, validator.ValidEmail("email", *r.Email))
	}
	if r.Preferences != nil && len(*r.Preferences) > 0 {
		rules = append(rules, validator.MinLenSlice("preferences", *r.Preferences, cfg.MinPreferences))
	}
	if r.changesPassword() {
		rules = append(rules,
			validator.RequiredString("currentPassword", r.CurrentPassword),
			validator.MinLenString("newPassword", r.NewPassword, cfg.PasswordMinLen),
			validator.MaxLenString("newPassword", r.NewPassword, 128),
		)
	}
	return validator.Apply(rules...)
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) sanitize() {
	r.Email = sanitizer.NormalizeEmail(r.Email)
}

func (r *ForgotPasswordRequest) validate() error {
	return validator.Apply(validator.ValidEmail("email", r.Email))
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *ResetPasswordRequest) sanitize() {
	r.Token = sanitizer.Trim(r.Token)
}

func (r *ResetPasswordRequest) validate(cfg Config) error {
	return validator.Apply(
		validator.RequiredString("token", r.Token),
		validator.MinLenString("password", r.Password, cfg.PasswordMinLen),
		validator.MaxLenString("password", r.Password, 128),
	)
}
