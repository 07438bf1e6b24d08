package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Tier is the capability level unlocked by the configured store credentials.
type Tier int

const (
	// TierFallback has no store credentials; reads serve fallback data only.
	TierFallback Tier = iota
	// TierStandard can read and write under row-level security.
	TierStandard
	// TierPrivileged can run administrative operations with the service credential.
	TierPrivileged
)

func (t Tier) String() string {
	switch t {
	case TierStandard:
		return "standard"
	case TierPrivileged:
		return "privileged"
	default:
		return "fallback"
	}
}

type Config struct {
	// Server
	ServerPort string
	ServerHost string

	// Database
	DatabaseType       string // "postgres" or "sqlite"
	DatabaseURL        string // anon credential, subject to row-level security
	ServiceDatabaseURL string // service credential, bypasses row-level security

	// Sessions
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool
	CookieDomain    string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string

	// App
	AppURL      string
	AppName     string
	CORSOrigins []string

	// Logging
	LogLevel  string
	LogFormat string

	// Content
	DefaultPageSize int
	MaxPageSize     int

	// Cache
	CacheTTL      time.Duration
	CacheRedisURL string

	// Timeouts
	PasswordUpdateTimeout time.Duration
	MutationTimeout       time.Duration
}

// Load reads defaults, an optional config file and the environment, in that
// order of precedence (environment wins).
func Load() *Config {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// A missing file is fine; defaults and env still apply.
	_ = v.ReadInConfig()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		ServerPort: v.GetString("SERVER_PORT"),
		ServerHost: v.GetString("SERVER_HOST"),

		DatabaseType:       v.GetString("DATABASE_TYPE"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		ServiceDatabaseURL: v.GetString("SERVICE_DATABASE_URL"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		CookieSecure:    v.GetBool("COOKIE_SECURE"),
		CookieDomain:    v.GetString("COOKIE_DOMAIN"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		FromEmail:    v.GetString("FROM_EMAIL"),

		AppURL:      strings.TrimRight(v.GetString("APP_URL"), "/"),
		AppName:     v.GetString("APP_NAME"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DefaultPageSize: v.GetInt("DEFAULT_PAGE_SIZE"),
		MaxPageSize:     v.GetInt("MAX_PAGE_SIZE"),

		CacheTTL:      v.GetDuration("CACHE_TTL"),
		CacheRedisURL: v.GetString("CACHE_REDIS_URL"),

		PasswordUpdateTimeout: v.GetDuration("PASSWORD_UPDATE_TIMEOUT"),
		MutationTimeout:       v.GetDuration("MUTATION_TIMEOUT"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("ACCESS_TOKEN_TTL", time.Hour)
	v.SetDefault("REFRESH_TOKEN_TTL", 30*24*time.Hour)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("FROM_EMAIL", "noreply@gcforum.org")
	v.SetDefault("APP_URL", "http://localhost:8080")
	v.SetDefault("APP_NAME", "GC Forum")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DEFAULT_PAGE_SIZE", 12)
	v.SetDefault("MAX_PAGE_SIZE", 48)
	v.SetDefault("CACHE_TTL", time.Minute)
	v.SetDefault("PASSWORD_UPDATE_TIMEOUT", 12*time.Second)
	v.SetDefault("MUTATION_TIMEOUT", 12*time.Second)
}

// Tier reports which capability level the credentials unlock.
func (c *Config) Tier() Tier {
	switch {
	case c.ServiceDatabaseURL != "":
		return TierPrivileged
	case c.DatabaseURL != "":
		return TierStandard
	default:
		return TierFallback
	}
}

// StoreConfigured is true when any store credential is present.
func (c *Config) StoreConfigured() bool {
	return c.Tier() != TierFallback
}

// AuthConfigured is true when sessions can be issued and verified.
func (c *Config) AuthConfigured() bool {
	return c.JWTSecret != "" && c.StoreConfigured()
}

func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
