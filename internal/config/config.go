package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBackendFile     = "file"
	StoreBackendMemory   = "memory"
	StoreBackendBadger   = "badger"
	StoreBackendPostgres = "postgres"
)

// Lock backends.
const (
	LockBackendMutex    = "mutex"
	LockBackendFile     = "file"
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Generator GeneratorConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the document store and its write lock.
type StoreConfig struct {
	Backend          string
	DataDir          string
	LockBackend      string
	LockTimeoutMS    int
	LockLeaseSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	LockPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication and account-seeding parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	PinTokenTTLMinutes    int
	BcryptCost            int
	EmailDomain           string
	StarterCredits        int
	LoginRatePerMinute    int
}

// BootstrapConfig seeds the sole administrator at startup when Email is set.
type BootstrapConfig struct {
	Name     string
	Email    string
	Password string
}

// GeneratorConfig points at the external code generation endpoint.
type GeneratorConfig struct {
	URL                string
	TimeoutSeconds     int
	BreakerFailures    int
	BreakerOpenSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "credit-ledger"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Backend:          strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFile)),
			DataDir:          getEnv("STORE_DATA_DIR", "data"),
			LockBackend:      strings.ToLower(getEnv("LOCK_BACKEND", LockBackendMutex)),
			LockTimeoutMS:    getEnvAsInt("LOCK_TIMEOUT_MS", 5000),
			LockLeaseSeconds: getEnvAsInt("LOCK_LEASE_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         redisDB,
			LockPrefix: getEnv("REDIS_LOCK_PREFIX", "credit-ledger:lock:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PinTokenTTLMinutes:    getEnvAsInt("AUTH_PIN_TOKEN_TTL_MINUTES", 5),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			EmailDomain:           getEnv("AUTH_EMAIL_DOMAIN", "gmail.com"),
			StarterCredits:        getEnvAsInt("AUTH_STARTER_CREDITS", 2),
			LoginRatePerMinute:    getEnvAsInt("AUTH_LOGIN_RATE_PER_MINUTE", 10),
		},
		Bootstrap: BootstrapConfig{
			Name:     getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
			Email:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Generator: GeneratorConfig{
			URL:                os.Getenv("GENERATOR_URL"),
			TimeoutSeconds:     getEnvAsInt("GENERATOR_TIMEOUT_SECONDS", 60),
			BreakerFailures:    getEnvAsInt("GENERATOR_BREAKER_FAILURES", 5),
			BreakerOpenSeconds: getEnvAsInt("GENERATOR_BREAKER_OPEN_SECONDS", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendMemory, StoreBackendBadger:
	case StoreBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Store.LockBackend {
	case LockBackendMutex, LockBackendFile, LockBackendRedis:
	case LockBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("LOCK_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.Store.LockBackend)
	}

	if c.Auth.StarterCredits < 0 {
		return fmt.Errorf("AUTH_STARTER_CREDITS must not be negative")
	}
	if c.Bootstrap.Email != "" && c.Bootstrap.Password == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL requires BOOTSTRAP_ADMIN_PASSWORD")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LockTimeout returns the bounded wait for a collection lock.
func (s StoreConfig) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutMS) * time.Millisecond
}

// LockLease returns the Redis lease duration.
func (s StoreConfig) LockLease() time.Duration {
	return time.Duration(s.LockLeaseSeconds) * time.Second
}

// AccessTokenTTL returns the session token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// PinTokenTTL returns how long a half-finished two-factor login stays valid.
func (a AuthConfig) PinTokenTTL() time.Duration {
	return time.Duration(a.PinTokenTTLMinutes) * time.Minute
}

// Timeout returns the per-call generator timeout.
func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// BreakerOpen returns how long the breaker stays open before probing again.
func (g GeneratorConfig) BreakerOpen() time.Duration {
	return time.Duration(g.BreakerOpenSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
