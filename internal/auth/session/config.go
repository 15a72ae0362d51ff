package session

import (
	"os"
	"time"
)

// Config defines runtime configuration for the credential subsystem.
//
// It controls the two token lifetimes, signing secrets, and clock skew
// tolerance. Each credential kind is signed with its own secret so that a
// leaked access secret cannot forge refresh credentials (and vice versa).
type Config struct {
	// Issuer is the value set in the "iss" claim of both credential kinds.
	Issuer string

	// AccessTTL is the access-credential lifetime (minutes-scale).
	AccessTTL time.Duration

	// RefreshTTL is the refresh-credential lifetime (days-scale).
	RefreshTTL time.Duration

	// ClockSkew is the allowed time skew during verification.
	ClockSkew time.Duration

	// AccessSecret and RefreshSecret are the HS256 signing keys.
	AccessSecret  []byte
	RefreshSecret []byte
}

// DefaultConfig returns defaults suitable for development.
// Secrets are intentionally absent; LoadConfigFromEnv requires them.
func DefaultConfig() Config {
	return Config{
		Issuer:     "gradnet",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		ClockSkew:  30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - GRADNET_AUTH_ACCESS_SECRET
//   - GRADNET_AUTH_REFRESH_SECRET (must differ from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - GRADNET_AUTH_ISSUER
//   - GRADNET_AUTH_ACCESS_TTL
//   - GRADNET_AUTH_REFRESH_TTL
//   - GRADNET_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("GRADNET_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("GRADNET_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTTL = d
	}

	if v := os.Getenv("GRADNET_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := os.Getenv("GRADNET_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	access := os.Getenv("GRADNET_AUTH_ACCESS_SECRET")
	refresh := os.Getenv("GRADNET_AUTH_REFRESH_SECRET")
	if access == "" || refresh == "" || access == refresh {
		return Config{}, ErrConfig
	}
	cfg.AccessSecret = []byte(access)
	cfg.RefreshSecret = []byte(refresh)

	// Access credentials must be the short-lived half.
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
