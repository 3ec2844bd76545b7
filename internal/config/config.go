package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cookie names used by the identity core. There is exactly one resolver path
// and one name per cookie; handlers never invent their own.
const (
	UIDCookieName = "u"
	DIDCookieName = "did"
	SIDCookieName = "sid"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Identity sealing
	SigningKeys   string // "kid:base64key,kid:base64key,..."; first pair signs
	DeviceKey     []byte // HMAC key for ADID derivation
	UserDeviceKey []byte // HMAC key for UDID derivation

	// Cookie settings
	CookieDomain string
	CookieSecure bool
	UIDCookieTTL time.Duration // ~13 months
	DIDCookieTTL time.Duration // ~5 years
	SIDCookieTTL time.Duration // ~30 days

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	DBInitTimeout  time.Duration

	// Debug endpoint
	DebugWhoamiToken string // bearer token gating /debug/whoami in production

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Cache (binding lookups and metrics gauges)
	CacheType        string // "memory", "redis", or "redis_aside"
	CacheInitTimeout time.Duration
	BindingCacheTTL  time.Duration
	CacheClientTTL   time.Duration // rueidis client-side cache TTL (redis_aside)
	CacheSizePerConn int           // rueidis client-side cache size in MB (redis_aside)

	// Redis (shared by caches and the redis rate-limit store)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Rate limiting
	EnableRateLimit          bool
	RateLimitStore           string // "memory" or "redis"
	InstallRequestsPerMinute int
	SessionRequestsPerMinute int
}

const (
	CacheTypeMemory     = "memory"
	CacheTypeRedis      = "redis"
	CacheTypeRedisAside = "redis_aside"
)

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SigningKeys:   getEnv("SIGNING_KEYS", ""),
		DeviceKey:     getEnvBase64("DEVICE_KEY"),
		UserDeviceKey: getEnvBase64("USER_DEVICE_KEY"),

		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnvBool("COOKIE_SECURE", getEnvBool("PRODUCTION", false)),
		UIDCookieTTL: getEnvDuration("UID_COOKIE_TTL", 400*24*time.Hour),
		DIDCookieTTL: getEnvDuration("DID_COOKIE_TTL", 5*365*24*time.Hour),
		SIDCookieTTL: getEnvDuration("SID_COOKIE_TTL", 30*24*time.Hour),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "identity.db"),
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),

		DebugWhoamiToken: getEnv("DEBUG_WHOAMI_TOKEN", ""),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", time.Minute),

		CacheType:        getEnv("CACHE_TYPE", CacheTypeMemory),
		CacheInitTimeout: getEnvDuration("CACHE_INIT_TIMEOUT", 10*time.Second),
		BindingCacheTTL:  getEnvDuration("BINDING_CACHE_TTL", 5*time.Minute),
		CacheClientTTL:   getEnvDuration("CACHE_CLIENT_TTL", time.Minute),
		CacheSizePerConn: getEnvInt("CACHE_SIZE_PER_CONN_MB", 16),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", "memory"),
		InstallRequestsPerMinute: getEnvInt("INSTALL_REQUESTS_PER_MINUTE", 30),
		SessionRequestsPerMinute: getEnvInt("SESSION_REQUESTS_PER_MINUTE", 60),
	}
}

// Validate checks settings that must be present before the process may serve
// traffic. Signing-key problems are deliberately fatal: running without
// cookie integrity protection would silently hand out forgeable identities.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SigningKeys) == "" {
		return errors.New("SIGNING_KEYS is required (kid:base64key pairs, comma-separated)")
	}
	if len(c.DeviceKey) == 0 {
		return errors.New("DEVICE_KEY is required (base64-encoded HMAC key)")
	}
	if len(c.UserDeviceKey) == 0 {
		return errors.New("USER_DEVICE_KEY is required (base64-encoded HMAC key)")
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	switch c.CacheType {
	case CacheTypeMemory, CacheTypeRedis, CacheTypeRedisAside:
	default:
		return fmt.Errorf("invalid CACHE_TYPE: %s (must be: memory, redis, redis_aside)", c.CacheType)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBase64 decodes a base64 (std or url, padded or not) environment value.
// Returns nil when unset or undecodable; Validate rejects nil where required.
func getEnvBase64(key string) []byte {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(value); err == nil {
			return b
		}
	}
	return nil
}
