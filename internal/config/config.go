package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// MinJWTSecretLength is the shortest accepted signing secret.
const MinJWTSecretLength = 32

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all service configuration loaded from environment variables.
// It is read once at startup and not modified afterwards.
type Config struct {
	Port         string
	StoreBackend string
	MongoURI     string
	MongoDB      string
	PostgresDSN  string

	RedisAddr          string
	RedisPassword      string
	LoginMaxAttempts   int
	LoginAttemptWindow time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret         string
	JWTExpiresIn      time.Duration
	PasswordMinLength int
	BcryptCost        int

	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64

	LogDir   string
	LogLevel string
}

// Load reads config.env (if present) into the environment without
// overriding variables already set, then builds and validates a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"config.env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Port:         getenv("PORT", "3001"),
		StoreBackend: strings.ToLower(getenv("STORE_BACKEND", BackendMongo)),
		MongoURI:     getenv("MONGO_URI", getenv("DATABASE_URL", "")),
		MongoDB:      getenv("MONGO_DB", "storyhub"),
		PostgresDSN:  getenv("POSTGRES_DSN", ""),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "images"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		JWTSecret: getenv("JWT_SECRET", getenv("SECRET", "")),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),

		LogDir:   getenv("LOG_DIR", ""),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	var errs []error
	var err error
	if cfg.LoginMaxAttempts, err = intEnv("LOGIN_MAX_ATTEMPTS", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginAttemptWindow, err = durationEnv("LOGIN_ATTEMPT_WINDOW", 15*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.JWTExpiresIn, err = durationEnv("JWT_EXPIRES_IN", 90*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.PasswordMinLength, err = intEnv("PASSWORD_MIN_LENGTH", 6); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", 12); err != nil {
		errs = append(errs, err)
	}
	var n int
	if n, err = intEnv("MAX_BODY_BYTES", 10<<20); err != nil {
		errs = append(errs, err)
	}
	cfg.MaxBodyBytes = int64(n)
	if n, err = intEnv("MAX_UPLOAD_BYTES", 10<<20); err != nil {
		errs = append(errs, err)
	}
	cfg.MaxUploadBytes = int64(n)

	if len(errs) == 0 {
		errs = append(errs, cfg.validate()...)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be at least 1"))
	}
	if c.LoginMaxAttempts < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be at least 1"))
	}
	if c.MaxUploadBytes <= 0 || c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES and MAX_UPLOAD_BYTES must be positive"))
	}
	switch c.StoreBackend {
	case BackendMongo, BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of mongo, postgres, memory", c.StoreBackend))
	}
	if c.MongoURI == "" && c.StoreBackend != BackendMemory {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	return errs
}

// MinioConfigured reports whether object storage settings are present.
// Without them the service runs with uploads disabled.
func (c *Config) MinioConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day form
// such as "90d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
