// Package config loads application configuration from environment variables.
// A .env file is honored when present. Missing upstream credentials or the
// chat channel token are startup failures; everything else has a default or
// degrades a feature gracefully (no DB -> in-memory stores, no Redis ->
// in-process limiter, no broker URL -> event publishing off, no admin
// credentials -> admin API off).
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	// Upstream enrollment system.
	UpstreamBaseURL string
	UpstreamUser    string
	UpstreamPass    string
	TermYear        string
	TermSemester    string

	// Chat channel.
	ChannelToken  string // bearer token for push/reply calls
	ChannelSecret string // HMAC secret for webhook signature checks

	// Engine tuning.
	PollInterval      time.Duration
	EntryPause        time.Duration
	MaxRetries        int
	RequestTimeout    time.Duration
	MaxWatchesPerUser int
	RatePerMinute     int
	SessionTTL        time.Duration
	HistoryRetention  time.Duration

	// Optional persistent store. Empty DBHost means in-memory stores.
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// Optional event broker. Empty means publishing disabled.
	AMQPURL string

	// Optional admin API. Disabled unless all three are set.
	AdminUser     string
	AdminPassHash string // bcrypt hash of the admin password
	JWTSecret     string
	AccessTTLMin  int
}

// Load reads configuration from the environment (and .env when present).
// Required variables are enforced by must(); missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env file")
	}

	return Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: getenv("APP_PORT", "5000"),

		UpstreamBaseURL: getenv("UPSTREAM_BASE_URL", "https://web.sys.scu.edu.tw"),
		UpstreamUser:    must("UPSTREAM_USERNAME"),
		UpstreamPass:    must("UPSTREAM_PASSWORD"),
		TermYear:        getenv("TERM_YEAR", "114"),
		TermSemester:    getenv("TERM_SEMESTER", "1"),

		ChannelToken:  must("CHANNEL_ACCESS_TOKEN"),
		ChannelSecret: must("CHANNEL_SECRET"),

		PollInterval:      envDur("POLL_INTERVAL", 5*time.Second),
		EntryPause:        envDur("ENTRY_PAUSE", 500*time.Millisecond),
		MaxRetries:        envInt("MAX_RETRY_ATTEMPTS", 3),
		RequestTimeout:    envDur("REQUEST_TIMEOUT", 30*time.Second),
		MaxWatchesPerUser: envInt("MAX_WATCHES_PER_USER", 10),
		RatePerMinute:     envInt("RATE_LIMIT_PER_MINUTE", 20),
		SessionTTL:        envDur("SESSION_TTL", 30*time.Minute),
		HistoryRetention:  envDur("HISTORY_RETENTION", 30*24*time.Hour),

		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: os.Getenv("DB_HOST"),
		DBPort: getenv("DB_PORT", "3306"),
		DBName: getenv("DB_NAME", "course_watcher"),

		AMQPURL: firstEnv("RABBITMQ_URL", "AMQP_URL"),

		AdminUser:     os.Getenv("ADMIN_USER"),
		AdminPassHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
	}
}

// PersistenceConfigured reports whether a database connection is expected.
func (c Config) PersistenceConfigured() bool { return c.DBHost != "" && c.DBUser != "" }

// AdminConfigured reports whether the admin API should be registered.
func (c Config) AdminConfigured() bool {
	return c.AdminUser != "" && c.AdminPassHash != "" && c.JWTSecret != ""
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	log.Printf("config: invalid value for %s: %q, using %d", key, v, def)
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// Bare integers are read as seconds for compatibility with older
	// deployments that set e.g. POLL_INTERVAL=5.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	log.Printf("config: invalid value for %s: %q, using %s", key, v, def)
	return def
}
