// Package config loads the application configuration from the environment
// and validates it before the server starts.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Environment string
	Port        string
	Host        string
	DatabaseURL string
	Backend     BackendConfig
	Cache       *CacheConfig
	Storage     StorageConfig
	PlantNet    PlantNetConfig
	Email       EmailConfig
	Notify      NotifyConfig
	Auth        AuthConfig
	Logging     *LoggingConfig
	Server      *ServerConfig
}

// BackendConfig points at the remote gallery backend
type BackendConfig struct {
	URL     string
	Timeout time.Duration
	// CatalogTTL is how long an image list snapshot is reused
	CatalogTTL time.Duration
}

// CacheConfig holds Redis configuration
type CacheConfig struct {
	Enabled         bool
	Address         string
	Password        string
	Database        int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	DefaultTTL      time.Duration
	// FlowTTL bounds how long an identification flow survives
	FlowTTL time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
	MaxUploadSize   int64
	AllowedTypes    []string
}

// PlantNetConfig configures the identification API client
type PlantNetConfig struct {
	URL     string
	Timeout time.Duration
	// KeysTTL is how long keys fetched from the backend are reused
	KeysTTL time.Duration
}

// EmailConfig configures the EmailJS REST client
type EmailConfig struct {
	URL             string
	ServiceID       string
	TemplateID      string
	AdminTemplateID string
	PublicKey       string
	PrivateKey      string
	Timeout         time.Duration
}

// NotifyConfig selects how notifications are delivered and paced
type NotifyConfig struct {
	Transport      string
	ShoutrrrURL    string
	Interval       time.Duration
	Concurrency    int
	SupportContact string
}

const (
	TransportEmailJS  = "emailjs"
	TransportShoutrrr = "shoutrrr"
)

// AuthConfig configures admin authentication and sessions
type AuthConfig struct {
	Provider          string
	SupabaseURL       string
	SupabaseAnonKey   string
	SessionSecret     string
	SessionMaxAge     time.Duration
	AdminEmail        string
	BootstrapUser     string
	BootstrapPassword string
}

const (
	AuthSupabase = "supabase"
	AuthLocal    = "local"

	defaultSessionSecret = "cuenca-ubate-dev-session-secret-change-me"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	useSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	cacheEnabled, _ := strconv.ParseBool(getEnv("CACHE_ENABLED", "false"))
	maxUploadSize := parseSize(getEnv("MAX_UPLOAD_SIZE", "10MB"))
	allowedTypes := parseList(getEnv("ALLOWED_FILE_TYPES", "image/jpeg,image/png,image/gif,image/webp"))

	config := &Config{
		Environment: getEnv("GO_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Host:        getEnv("HOST", "localhost"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Backend: BackendConfig{
			URL:        strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8002"), "/"),
			Timeout:    parseDuration(getEnv("BACKEND_TIMEOUT", "15s"), 15*time.Second),
			CatalogTTL: parseDuration(getEnv("CATALOG_TTL", "30s"), 30*time.Second),
		},
		Cache: &CacheConfig{
			Enabled:         cacheEnabled,
			Address:         getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			Database:        parseInt(getEnv("REDIS_DB", "0"), 0),
			MaxRetries:      parseInt(getEnv("REDIS_MAX_RETRIES", "3"), 3),
			MinRetryBackoff: parseDuration(getEnv("REDIS_MIN_RETRY_BACKOFF", "8ms"), 8*time.Millisecond),
			MaxRetryBackoff: parseDuration(getEnv("REDIS_MAX_RETRY_BACKOFF", "512ms"), 512*time.Millisecond),
			DialTimeout:     parseDuration(getEnv("REDIS_DIAL_TIMEOUT", "5s"), 5*time.Second),
			ReadTimeout:     parseDuration(getEnv("REDIS_READ_TIMEOUT", "3s"), 3*time.Second),
			WriteTimeout:    parseDuration(getEnv("REDIS_WRITE_TIMEOUT", "3s"), 3*time.Second),
			PoolSize:        parseInt(getEnv("REDIS_POOL_SIZE", "10"), 10),
			MinIdleConns:    parseInt(getEnv("REDIS_MIN_IDLE_CONNS", "2"), 2),
			PoolTimeout:     parseDuration(getEnv("REDIS_POOL_TIMEOUT", "4s"), 4*time.Second),
			DefaultTTL:      parseDuration(getEnv("CACHE_DEFAULT_TTL", "5m"), 5*time.Minute),
			FlowTTL:         parseDuration(getEnv("IDENTIFICATION_FLOW_TTL", "30m"), 30*time.Minute),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "plantas"),
			UseSSL:          useSSL,
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
			MaxUploadSize:   maxUploadSize,
			AllowedTypes:    allowedTypes,
		},
		PlantNet: PlantNetConfig{
			URL:     strings.TrimRight(getEnv("PLANTNET_URL", "https://my-api.plantnet.org"), "/"),
			Timeout: parseDuration(getEnv("PLANTNET_TIMEOUT", "30s"), 30*time.Second),
			KeysTTL: parseDuration(getEnv("API_KEYS_TTL", "10m"), 10*time.Minute),
		},
		Email: EmailConfig{
			URL:             strings.TrimRight(getEnv("EMAILJS_URL", "https://api.emailjs.com"), "/"),
			ServiceID:       getEnv("EMAILJS_SERVICE_ID", ""),
			TemplateID:      getEnv("EMAILJS_TEMPLATE_ID", ""),
			AdminTemplateID: getEnv("EMAILJS_ADMIN_TEMPLATE_ID", ""),
			PublicKey:       getEnv("EMAILJS_PUBLIC_KEY", ""),
			PrivateKey:      getEnv("EMAILJS_PRIVATE_KEY", ""),
			Timeout:         parseDuration(getEnv("EMAILJS_TIMEOUT", "10s"), 10*time.Second),
		},
		Notify: NotifyConfig{
			Transport:      strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportEmailJS)),
			ShoutrrrURL:    getEnv("NOTIFY_SHOUTRRR_URL", ""),
			Interval:       parseDuration(getEnv("NOTIFY_INTERVAL", "800ms"), 800*time.Millisecond),
			Concurrency:    parseInt(getEnv("NOTIFY_CONCURRENCY", "1"), 1),
			SupportContact: getEnv("NOTIFY_SUPPORT_CONTACT", getEnv("ADMIN_EMAIL", "")),
		},
		Auth: AuthConfig{
			Provider:          strings.ToLower(getEnv("AUTH_PROVIDER", AuthSupabase)),
			SupabaseURL:       strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
			SessionSecret:     getEnv("SESSION_SECRET", defaultSessionSecret),
			SessionMaxAge:     parseDuration(getEnv("SESSION_MAX_AGE", "8h"), 8*time.Hour),
			AdminEmail:        getEnv("ADMIN_EMAIL", ""),
			BootstrapUser:     getEnv("ADMIN_BOOTSTRAP_USER", ""),
			BootstrapPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:     parseDuration(getEnv("READ_TIMEOUT", "10s"), 10*time.Second),
			WriteTimeout:    parseDuration(getEnv("WRITE_TIMEOUT", "30s"), 30*time.Second),
			IdleTimeout:     parseDuration(getEnv("SERVER_TIMEOUT", "60s"), 60*time.Second),
			ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"), 30*time.Second),
		},
	}

	// Validate configuration before returning
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Address is the host:port the HTTP server listens on
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseSize parses size strings like "10MB", "512KB" into bytes
func parseSize(sizeStr string) int64 {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	if strings.HasSuffix(sizeStr, "MB") {
		numStr := strings.TrimSuffix(sizeStr, "MB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024 * 1024
		}
	}

	if strings.HasSuffix(sizeStr, "KB") {
		numStr := strings.TrimSuffix(sizeStr, "KB")
		if num, err := strconv.ParseInt(numStr, 10, 64); err == nil {
			return num * 1024
		}
	}

	// Default to 10MB if parsing fails
	return 10 * 1024 * 1024
}

// parseList parses comma-separated strings into slices
func parseList(listStr string) []string {
	if listStr == "" {
		return []string{}
	}

	items := strings.Split(listStr, ",")
	result := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad loads configuration and panics on error
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(err)
	}
	return config
}
