package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and cookie transport defaults.
type Config struct {
	AccessCookieName  string
	RefreshCookieName string

	// CookiePath scopes the access cookie; RefreshCookiePath scopes the
	// refresh cookie to the rotation endpoint only.
	CookiePath        string
	RefreshCookiePath string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	TrustProxy   bool
	MaxBodyBytes int64
}

// DefaultConfig returns cookie-transport defaults.
func DefaultConfig() Config {
	return Config{
		AccessCookieName:  "accessToken",
		RefreshCookieName: "refreshToken",
		CookiePath:        "/",
		RefreshCookiePath: "/auth/refresh",
		CookieSecure:      true,
		CookieSameSite:    http.SameSiteStrictMode,
		MaxBodyBytes:      1 << 20, // 1 MiB
	}
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("GRADNET_AUTH_COOKIE_DOMAIN")); v != "" {
		cfg.CookieDomain = v
	}
	cfg.CookieSecure = envBool("GRADNET_AUTH_COOKIE_SECURE", cfg.CookieSecure)
	cfg.CookieSameSite = envSameSite("GRADNET_AUTH_COOKIE_SAMESITE", cfg.CookieSameSite)
	cfg.TrustProxy = envBool("GRADNET_AUTH_TRUST_PROXY", cfg.TrustProxy)
	cfg.MaxBodyBytes = envInt64("GRADNET_AUTH_MAX_BODY_BYTES", cfg.MaxBodyBytes)

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
