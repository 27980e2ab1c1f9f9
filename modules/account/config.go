package account

import "time"

// Config holds account module settings loaded from the environment.
type Config struct {
	JWTSecret       string        `env:"JWT_SECRET,required"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	MaxImageSize    int64         `env:"MAX_IMAGE_SIZE" envDefault:"5242880"`
	PasswordMinLen  int           `env:"PASSWORD_MIN_LEN" envDefault:"6"`
	MinPreferences  int           `env:"MIN_PREFERENCES" envDefault:"2"`
	ResetRateLimit  int           `env:"RESET_RATE_LIMIT" envDefault:"3"`
	ResetRateWindow time.Duration `env:"RESET_RATE_WINDOW" envDefault:"1h"`
}
