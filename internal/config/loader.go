package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "nextup.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// CLIFlags holds command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
}

// ParseFlags parses serve flags. Only flags present in args are non-nil.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("nextup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configPath, port, logLevel, dsn, natsURL string
	)
	fs.StringVar(&configPath, "config", "", "path to YAML config")
	fs.StringVar(&configPath, "c", "", "path to YAML config (shorthand)")
	fs.StringVar(&port, "port", "", "HTTP port")
	fs.StringVar(&port, "p", "", "HTTP port (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "log level")
	fs.StringVar(&dsn, "dsn", "", "PostgreSQL DSN")
	fs.StringVar(&natsURL, "nats-url", "", "NATS URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	var flags CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = &configPath
		case "port", "p":
			flags.Port = &port
		case "log-level":
			flags.LogLevel = &logLevel
		case "dsn":
			flags.DSN = &dsn
		case "nats-url":
			flags.NatsURL = &natsURL
		}
	})
	return flags, nil
}

// LoadWithCLI loads defaults < YAML < ENV < CLI and returns the YAML path
// that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "NEXTUP_PORT")
	setStrings(&cfg.Server.CORSOrigins, "NEXTUP_CORS_ORIGINS")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "NEXTUP_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "NEXTUP_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "NEXTUP_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "NEXTUP_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "NEXTUP_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "NEXTUP_LOG_LEVEL")
	setString(&cfg.Logging.Service, "NEXTUP_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "NEXTUP_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "NEXTUP_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "NEXTUP_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "NEXTUP_RATE_RPS")
	setInt(&cfg.Rate.Burst, "NEXTUP_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "NEXTUP_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "NEXTUP_RATE_MAX_IDLE_TIME")

	// Auth
	setBool(&cfg.Auth.Enabled, "NEXTUP_AUTH_ENABLED")
	setString(&cfg.Auth.JWTSecret, "NEXTUP_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "NEXTUP_ACCESS_TOKEN_EXPIRY")
	setDuration(&cfg.Auth.RefreshTokenExpiry, "NEXTUP_REFRESH_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "NEXTUP_BCRYPT_COST")
	setBool(&cfg.Auth.AllowRegistration, "NEXTUP_ALLOW_REGISTRATION")
	setBool(&cfg.Auth.SecureCookies, "NEXTUP_SECURE_COOKIES")
	setDuration(&cfg.Auth.TokenPurgeInterval, "NEXTUP_TOKEN_PURGE_INTERVAL")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "NEXTUP_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "NEXTUP_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "NEXTUP_CACHE_L2_TTL")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "NEXTUP_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "NEXTUP_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "NEXTUP_OTEL_SAMPLE_RATE")

	// Scoring
	setFloat64(&cfg.Scoring.ImportanceMultiplier, "NEXTUP_SCORING_IMPORTANCE_MULTIPLIER")
	setFloat64(&cfg.Scoring.AnnoyingnessMultiplier, "NEXTUP_SCORING_ANNOYINGNESS_MULTIPLIER")
	setFloat64(&cfg.Scoring.TimeEstimateMultiplier, "NEXTUP_SCORING_TIME_ESTIMATE_MULTIPLIER")
	setFloat64(&cfg.Scoring.PriorityMultiplier, "NEXTUP_SCORING_PRIORITY_MULTIPLIER")
	setFloat64(&cfg.Scoring.PriorityExponent, "NEXTUP_SCORING_PRIORITY_EXPONENT")
	setFloat64(&cfg.Scoring.TimeEstimateExponent, "NEXTUP_SCORING_TIME_ESTIMATE_EXPONENT")
	setFloat64(&cfg.Scoring.DesirabilityExponent, "NEXTUP_SCORING_DESIRABILITY_EXPONENT")

	setInt(&cfg.Ordering.MaxRetries, "NEXTUP_ORDERING_MAX_RETRIES")
}

// MinJWTSecretLength is the shortest HS256 secret accepted when auth is on.
const MinJWTSecretLength = 32

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	// A secret file is read and checked by the secrets vault at startup.
	if cfg.Auth.Enabled && os.Getenv("NEXTUP_JWT_SECRET_FILE") == "" && len(cfg.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters", MinJWTSecretLength)
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.Ordering.MaxRetries < 0 {
		return errors.New("ordering.max_retries must be >= 0")
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStrings splits a comma-separated value, dropping empty entries.
func setStrings(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
