package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string
	Telemetry    TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBConnectRetries  int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	Masses    MassConfig
	Paging    PagingConfig
	Bootstrap BootstrapConfig
	Scheduler SchedulerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a shared redis store is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	Enabled          bool
	LoginMaxAttempts int
	LoginWindow      time.Duration
	APIRatePerSecond float64
	APIBurst         int
}

type AuthConfig struct {
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	UserCacheTTL     time.Duration
}

type MassConfig struct {
	MonthlyPersonalTarget int
	BulkWarningThreshold  int
	BulkCriticalThreshold int
	NotificationRetention int
}

type PagingConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

type BootstrapConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// TelemetryConfig drives logging, tracing and OTLP metrics export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelProtocol  string
	SamplingRatio float64
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	jwtSecret := strings.TrimSpace(getenv("AUTH_JWT_SECRET", ""))
	refreshSecret := strings.TrimSpace(getenv("AUTH_JWT_REFRESH_SECRET", ""))
	if refreshSecret == "" {
		refreshSecret = jwtSecret
	}

	environment := getenv("ENVIRONMENT", "development")
	otlpProtocol := getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		otlpProtocol = traces
	}

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "masstrack"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", !isDevelopment(environment)),
			OtelProtocol:  strings.ToLower(strings.TrimSpace(otlpProtocol)),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "masstrack"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBConnectRetries:  getenvInt("DATABASE_CONNECT_RETRIES", 5),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", true),
			LoginMaxAttempts: getenvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      time.Duration(getenvInt("LOGIN_WINDOW_MINUTES", 15)) * time.Minute,
			APIRatePerSecond: getenvFloat("API_RATE_PER_SECOND", 20),
			APIBurst:         getenvInt("API_BURST", 40),
		},
		Auth: AuthConfig{
			JWTSecret:        jwtSecret,
			JWTRefreshSecret: refreshSecret,
			AccessTokenTTL:   time.Duration(getenvInt64("AUTH_ACCESS_TOKEN_TTL_SECONDS", 3600)) * time.Second,
			RefreshTokenTTL:  time.Duration(getenvInt64("AUTH_REFRESH_TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
			UserCacheTTL:     time.Duration(getenvInt64("AUTH_USER_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
		Masses: MassConfig{
			MonthlyPersonalTarget: getenvInt("MONTHLY_PERSONAL_MASS_TARGET", 3),
			BulkWarningThreshold:  getenvInt("BULK_INTENTION_WARNING_THRESHOLD", 10),
			BulkCriticalThreshold: getenvInt("BULK_INTENTION_CRITICAL_THRESHOLD", 5),
			NotificationRetention: getenvInt("NOTIFICATION_RETENTION_DAYS", 30),
		},
		Paging: PagingConfig{
			DefaultPageSize: getenvInt("PAGINATION_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getenvInt("PAGINATION_MAX_PAGE_SIZE", 100),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_USERNAME", "admin")),
			AdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getenvBool("SCHEDULER_ENABLED", true),
			Interval: time.Duration(getenvInt64("SCHEDULER_INTERVAL_SECONDS", 3600)) * time.Second,
		},
	}

	return cfg
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// IsDevelopment is true for local, dev and test environments.
func (c Config) IsDevelopment() bool {
	return isDevelopment(c.Environment)
}

func isDevelopment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
