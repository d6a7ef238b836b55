// Package config reads AgentDesk's environment variables into typed values.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gateway backends selectable through AGENTDESK_GATEWAY.
const (
	GatewayMemory   = "memory"
	GatewayPostgres = "postgres"
	GatewaySQLite   = "sqlite"
	GatewayRedis    = "redis"
)

// Config is the runtime configuration shared by the server, the worker and
// the CLI.
type Config struct {
	Address   string
	PublicURL string
	Dev       bool

	Gateway     string
	DatabaseURL string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3UseSSL     bool
	S3Region     string
	ExportBucket string

	JWTSecret     []byte
	SigningSecret []byte
	SignedURLTTL  time.Duration

	AutosaveDelay   time.Duration
	SessionIdle     time.Duration
	IdentityMapPath string

	ResendAPIKey    string
	EmailFrom       string
	EmailRecipients []string

	TranslateURL   string
	TranslateRPS   float64
	WorkerPoolSize int
}

const (
	defaultAddress       = ":8080"
	defaultPublicURL     = "http://localhost:8080"
	defaultSQLitePath    = "agentdesk.db"
	defaultRedisAddr     = "localhost:6379"
	defaultRedisPrefix   = "agentdesk"
	defaultS3Endpoint    = "localhost:9000"
	defaultS3Region      = "us-east-1"
	defaultExportBucket  = "agentdesk-exports"
	defaultSignedTTL     = 15 * time.Minute
	defaultAutosaveDelay = 2 * time.Second
	defaultSessionIdle   = 30 * time.Minute
	defaultEmailFrom     = "AgentDesk <reports@agentdesk.local>"
	defaultTranslateURL  = "https://translate.googleapis.com"
	defaultTranslateRPS  = 1
	defaultWorkerCount   = 2
)

// ErrInvalid wraps every configuration problem Load reports.
var ErrInvalid = errors.New("invalid configuration")

// Load reads configuration from environment variables falling back to
// defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Address:   readEnv("AGENTDESK_ADDRESS", defaultAddress),
		PublicURL: strings.TrimRight(readEnv("AGENTDESK_PUBLIC_URL", defaultPublicURL), "/"),
		Dev:       parseBool("AGENTDESK_DEV", false),

		Gateway:     strings.ToLower(readEnv("AGENTDESK_GATEWAY", GatewayMemory)),
		DatabaseURL: readEnv("AGENTDESK_DATABASE_URL", ""),
		SQLitePath:  readEnv("AGENTDESK_SQLITE_PATH", defaultSQLitePath),

		RedisAddr:     readEnv("AGENTDESK_REDIS_ADDR", defaultRedisAddr),
		RedisPassword: readEnv("AGENTDESK_REDIS_PASSWORD", ""),
		RedisDB:       parseInt("AGENTDESK_REDIS_DB", 0),
		RedisPrefix:   readEnv("AGENTDESK_REDIS_PREFIX", defaultRedisPrefix),

		S3Endpoint:   readEnv("AGENTDESK_S3_ENDPOINT", defaultS3Endpoint),
		S3AccessKey:  readEnv("AGENTDESK_S3_ACCESS_KEY", ""),
		S3SecretKey:  readEnv("AGENTDESK_S3_SECRET_KEY", ""),
		S3UseSSL:     parseBool("AGENTDESK_S3_USE_SSL", false),
		S3Region:     readEnv("AGENTDESK_S3_REGION", defaultS3Region),
		ExportBucket: readEnv("AGENTDESK_EXPORT_BUCKET", defaultExportBucket),

		JWTSecret:     parseSecret("AGENTDESK_JWT_SECRET"),
		SigningSecret: parseSecret("AGENTDESK_SIGNING_SECRET"),
		SignedURLTTL:  parseDuration("AGENTDESK_SIGNED_TTL", defaultSignedTTL),

		AutosaveDelay:   parseDuration("AGENTDESK_AUTOSAVE_DELAY", defaultAutosaveDelay),
		SessionIdle:     parseDuration("AGENTDESK_SESSION_IDLE", defaultSessionIdle),
		IdentityMapPath: readEnv("AGENTDESK_IDENTITY_MAP", ""),

		ResendAPIKey:    readEnv("AGENTDESK_RESEND_API_KEY", ""),
		EmailFrom:       readEnv("AGENTDESK_EMAIL_FROM", defaultEmailFrom),
		EmailRecipients: parseList("AGENTDESK_EMAIL_RECIPIENTS", ""),

		TranslateURL:   readEnv("AGENTDESK_TRANSLATE_URL", defaultTranslateURL),
		TranslateRPS:   parseFloat("AGENTDESK_TRANSLATE_RPS", defaultTranslateRPS),
		WorkerPoolSize: parseInt("AGENTDESK_WORKERS", defaultWorkerCount),
	}
	if cfg.SigningSecret == nil {
		cfg.SigningSecret = randomSecret()
	}
	if cfg.JWTSecret == nil {
		if !cfg.Dev {
			return nil, fmt.Errorf("%w: AGENTDESK_JWT_SECRET is required outside dev mode", ErrInvalid)
		}
		cfg.JWTSecret = []byte("agentdesk-dev-secret")
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerCount
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.AutosaveDelay <= 0 {
		cfg.AutosaveDelay = defaultAutosaveDelay
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = defaultSessionIdle
	}
	if cfg.TranslateRPS <= 0 {
		cfg.TranslateRPS = defaultTranslateRPS
	}
	switch cfg.Gateway {
	case GatewayMemory, GatewaySQLite, GatewayRedis:
	case GatewayPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: AGENTDESK_DATABASE_URL is required for the postgres gateway", ErrInvalid)
		}
	default:
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrInvalid, cfg.Gateway)
	}
	return cfg, nil
}

// EmailEnabled reports whether exports are mailed through Resend.
func (c *Config) EmailEnabled() bool {
	return c.ResendAPIKey != "" && len(c.EmailRecipients) > 0
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseList(key, def string) []string {
	val := readEnv(key, def)
	if val == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	// Accepts inputs like "2s" or "30m".
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	// crypto/rand.Read never fails on supported platforms since Go 1.24.
	_, _ = rand.Read(buf)
	return buf
}
