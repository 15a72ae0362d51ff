package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MigrateOnStart runs embedded schema migrations before serving.
	MigrateOnStart bool

	// CORS policy for the browser client. A trailing ":*" in an origin
	// allows any port on that host.
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// If true, GRADNET_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and
	// refresh-credential hashing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("GRADNET_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("GRADNET_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("GRADNET_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("GRADNET_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("GRADNET_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("GRADNET_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("GRADNET_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("GRADNET_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("GRADNET_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("GRADNET_DB_MIN_CONNS", 0),

		MigrateOnStart: EnvBool("GRADNET_DB_MIGRATE_ON_START", true),

		CORSAllowedOrigins:   EnvStringList("GRADNET_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("GRADNET_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("GRADNET_CORS_MAX_AGE_SECONDS", 600),

		ReadinessRequireDB: EnvBool("GRADNET_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("GRADNET_REQUIRE_TOKEN_HMAC", false),
	}
}
