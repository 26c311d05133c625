package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cineseat/internal/shared/constants"
)

// Config holds all configuration for the seat inventory service
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Hold      HoldConfig
	Reconcile ReconcileConfig
	Kafka     KafkaConfig
	Pricing   PricingConfig

	LogLevel string
}

// DatabaseConfig holds database configuration. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	DSN             string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
}

// JWTConfig holds the secret used to verify admin bearer tokens
type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	HoldRequests     int           `json:"hold_requests"`
	CheckoutRequests int           `json:"checkout_requests"`
	AdminRequests    int           `json:"admin_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// HoldConfig bounds seat hold and cart lifetimes
type HoldConfig struct {
	DefaultTTL    time.Duration
	MaxTTL        time.Duration
	CartTTL       time.Duration
	MaxCartTTL    time.Duration
	SweepInterval time.Duration
	SweepBatch    int
}

// ReconcileConfig controls the reconciliation engine. TxSupported must be set
// deliberately; it is never inferred from the driver.
type ReconcileConfig struct {
	TxSupported bool
	TxPolicy    string
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	BatchSize   int
	Interval    time.Duration
}

type KafkaConfig struct {
	Enabled            bool
	Brokers            []string
	ClientID           string
	SeatEventsTopic    string
	PaymentEventsTopic string
	ConsumerGroup      string
}

type PricingConfig struct {
	Timezone string
	CacheTTL time.Duration
}

// Location returns the zone price rules are evaluated in, UTC when unset or unknown.
func (p PricingConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20),

		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "cineseat"),
			User:            getEnv("DB_USER", "cineseat"),
			Password:        getEnv("DB_PASSWORD", "cineseat"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "cineseat.db"),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 120),
			HoldRequests:     getIntEnv("RATE_LIMIT_HOLD_REQUESTS", 30),
			CheckoutRequests: getIntEnv("RATE_LIMIT_CHECKOUT_REQUESTS", 10),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Hold: HoldConfig{
			DefaultTTL:    getDurationEnv("HOLD_DEFAULT_TTL", 10*time.Minute),
			MaxTTL:        getDurationEnv("HOLD_MAX_TTL", 30*time.Minute),
			CartTTL:       getDurationEnv("CART_TTL", 15*time.Minute),
			MaxCartTTL:    getDurationEnv("CART_MAX_TTL", 45*time.Minute),
			SweepInterval: getDurationEnv("HOLD_SWEEP_INTERVAL", time.Minute),
			SweepBatch:    getIntEnv("HOLD_SWEEP_BATCH", 500),
		},

		Reconcile: ReconcileConfig{
			TxSupported: getBoolEnv("RECONCILE_TX_SUPPORTED", true),
			TxPolicy:    getEnv("RECONCILE_TX_POLICY", "auto"),
			MaxAttempts: getIntEnv("RECONCILE_MAX_ATTEMPTS", 4),
			BaseBackoff: getDurationEnv("RECONCILE_BASE_BACKOFF", 50*time.Millisecond),
			MaxBackoff:  getDurationEnv("RECONCILE_MAX_BACKOFF", 2*time.Second),
			BatchSize:   getIntEnv("RECONCILE_BATCH_SIZE", 50),
			Interval:    getDurationEnv("RECONCILE_INTERVAL", 0),
		},

		Kafka: KafkaConfig{
			Enabled:            getBoolEnv("KAFKA_ENABLED", false),
			Brokers:            getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			ClientID:           getEnv("KAFKA_CLIENT_ID", "cineseat"),
			SeatEventsTopic:    getEnv("KAFKA_SEAT_EVENTS_TOPIC", constants.TOPIC_SEAT_EVENTS),
			PaymentEventsTopic: getEnv("KAFKA_PAYMENT_EVENTS_TOPIC", constants.TOPIC_PAYMENT_EVENTS),
			ConsumerGroup:      getEnv("KAFKA_CONSUMER_GROUP", constants.CONSUMER_GROUP_CHECKOUT),
		},

		Pricing: PricingConfig{
			Timezone: getEnv("PRICING_TIMEZONE", "UTC"),
			CacheTTL: getDurationEnv("PRICING_CACHE_TTL", constants.TTL_ACTIVE_PRICE_RULES),
		},

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// Validate reports configuration that would make the service misbehave.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Hold.DefaultTTL <= 0 || c.Hold.DefaultTTL > c.Hold.MaxTTL {
		errs = append(errs, fmt.Errorf("HOLD_DEFAULT_TTL must be in (0, HOLD_MAX_TTL]"))
	}
	if c.Hold.CartTTL <= 0 || c.Hold.CartTTL > c.Hold.MaxCartTTL {
		errs = append(errs, fmt.Errorf("CART_TTL must be in (0, CART_MAX_TTL]"))
	}
	switch c.Reconcile.TxPolicy {
	case "auto", "required":
	default:
		errs = append(errs, fmt.Errorf("RECONCILE_TX_POLICY must be auto or required, got %q", c.Reconcile.TxPolicy))
	}
	if c.Reconcile.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RECONCILE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Reconcile.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("RECONCILE_BATCH_SIZE must be at least 1"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED"))
	}
	return errors.Join(errs...)
}

func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv reads a comma-separated list
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
