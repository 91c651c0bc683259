package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Auth          AuthConfig
	Throttle      ThrottleConfig
	Policy        PolicyConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Driver     string
	Database   DatabaseConfig
	SQLitePath string
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// ThrottleConfig bounds request rate per caller at the HTTP edge
type ThrottleConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// TimeWindow is an inclusive range of seconds since midnight UTC
type TimeWindow struct {
	StartSecond int
	EndSecond   int
}

// Contains reports whether t falls inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	t = t.UTC()
	sec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return sec >= w.StartSecond && sec <= w.EndSecond
}

// PolicyConfig holds the tunable limits of the policy engine
type PolicyConfig struct {
	BusinessHours            TimeWindow
	BusinessHoursCollections []string
	DeviceGateCollections    []string
	RoleMax                  int
	RoleMin                  int
	ApprovalQuorum           int
	AuditRateLimit           int
	AuditRateWindow          time.Duration
	AuditClockSkew           time.Duration
	RateLimitedCollections   []string
	MinInitialCapital        float64
}

// DefaultPolicyConfig returns the limits used when nothing is configured
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BusinessHours:            TimeWindow{StartSecond: 9 * 3600, EndSecond: 17 * 3600},
		BusinessHoursCollections: []string{"admins"},
		DeviceGateCollections:    []string{},
		RoleMax:                  3,
		RoleMin:                  2,
		ApprovalQuorum:           2,
		AuditRateLimit:           30,
		AuditRateWindow:          time.Hour,
		AuditClockSkew:           5 * time.Minute,
		RateLimitedCollections:   []string{"admin_audit"},
		MinInitialCapital:        100,
	}
}

// BusinessHoursApply reports whether the time gate covers the collection
func (p PolicyConfig) BusinessHoursApply(collection string) bool {
	return contains(p.BusinessHoursCollections, collection)
}

// DeviceGateApplies reports whether the device gate covers the collection
func (p PolicyConfig) DeviceGateApplies(collection string) bool {
	return contains(p.DeviceGateCollections, collection)
}

// RateLimitApplies reports whether audit writes to the collection are rate limited
func (p PolicyConfig) RateLimitApplies(collection string) bool {
	return contains(p.RateLimitedCollections, collection)
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	defaults := DefaultPolicyConfig()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory)),
			Database:   loadDatabaseConfig(),
			SQLitePath: getEnv("SQLITE_PATH", "data/waqf-policy.db"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			JWTIssuer:   getEnv("JWT_ISSUER", ""),
			JWTAudience: getEnv("JWT_AUDIENCE", ""),
		},
		Throttle: ThrottleConfig{
			Enabled:           getEnvAsBool("THROTTLE_ENABLED", true),
			RequestsPerSecond: getEnvAsFloat("THROTTLE_RPS", 5),
			Burst:             getEnvAsInt("THROTTLE_BURST", 10),
		},
		Policy: PolicyConfig{
			BusinessHours: TimeWindow{
				StartSecond: getEnvAsInt("POLICY_BUSINESS_HOURS_START", defaults.BusinessHours.StartSecond),
				EndSecond:   getEnvAsInt("POLICY_BUSINESS_HOURS_END", defaults.BusinessHours.EndSecond),
			},
			BusinessHoursCollections: getEnvAsList("POLICY_BUSINESS_HOURS_COLLECTIONS", defaults.BusinessHoursCollections),
			DeviceGateCollections:    getEnvAsList("POLICY_DEVICE_GATE_COLLECTIONS", defaults.DeviceGateCollections),
			RoleMax:                  getEnvAsInt("POLICY_ROLE_MAX", defaults.RoleMax),
			RoleMin:                  getEnvAsInt("POLICY_ROLE_MIN", defaults.RoleMin),
			ApprovalQuorum:           getEnvAsInt("POLICY_APPROVAL_QUORUM", defaults.ApprovalQuorum),
			AuditRateLimit:           getEnvAsInt("POLICY_AUDIT_RATE_LIMIT", defaults.AuditRateLimit),
			AuditRateWindow:          getEnvAsDuration("POLICY_AUDIT_RATE_WINDOW", defaults.AuditRateWindow),
			AuditClockSkew:           getEnvAsDuration("POLICY_AUDIT_CLOCK_SKEW", defaults.AuditClockSkew),
			RateLimitedCollections:   getEnvAsList("POLICY_RATE_LIMITED_COLLECTIONS", defaults.RateLimitedCollections),
			MinInitialCapital:        getEnvAsFloat("WAQF_MIN_INITIAL_CAPITAL", defaults.MinInitialCapital),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Store.Database.ConnectionString == "" && c.Store.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Store.Database.ConnectionString == "" {
			if c.Store.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Store.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required in production")
		}
		if c.Store.Driver == StoreDriverMemory {
			return fmt.Errorf("memory store is not allowed in production")
		}
	}

	if c.Throttle.Enabled && (c.Throttle.RequestsPerSecond <= 0 || c.Throttle.Burst <= 0) {
		return fmt.Errorf("throttle rate and burst must be positive")
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Validate checks the policy limits for consistency
func (p PolicyConfig) Validate() error {
	w := p.BusinessHours
	if w.StartSecond < 0 || w.EndSecond > 86400 || w.StartSecond > w.EndSecond {
		return fmt.Errorf("business hours must satisfy 0 <= start <= end <= 86400")
	}
	if p.RoleMin < 0 || p.RoleMax < 1 || p.RoleMin > p.RoleMax {
		return fmt.Errorf("role quota requires 0 <= min <= max and max >= 1")
	}
	if p.ApprovalQuorum < 1 {
		return fmt.Errorf("approval quorum must be at least 1")
	}
	if p.AuditRateLimit < 1 || p.AuditRateWindow <= 0 {
		return fmt.Errorf("audit rate limit and window must be positive")
	}
	if p.AuditClockSkew <= 0 || p.AuditClockSkew >= p.AuditRateWindow {
		return fmt.Errorf("audit clock skew must be positive and shorter than the rate window")
	}
	if p.MinInitialCapital < 0 {
		return fmt.Errorf("minimum initial capital cannot be negative")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "waqf"),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", "waqf_policy"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable. "none" yields an empty list.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		out := make([]string, len(defaultValue))
		copy(out, defaultValue)
		return out
	}
	out := []string{}
	if strings.EqualFold(strings.TrimSpace(valueStr), "none") {
		return out
	}
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
