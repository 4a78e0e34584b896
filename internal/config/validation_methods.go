package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	maxUploadLimit = 100 << 20
	maxHTTPTimeout = 5 * time.Minute
	redacted       = "[REDACTED]"
)

var (
	validEnvironments = []string{"development", "production", "test", "staging"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
	validLogFormats   = []string{"json", "text", "console"}
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return "configuration validation failed: " + strings.Join(messages, "; ")
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

func (ve *ValidationErrors) add(field string, value interface{}, message string) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var ve ValidationErrors

	c.validateServer(&ve)
	c.validateDatabase(&ve)
	c.validateStorage(&ve)
	c.validateBackend(&ve)
	if c.Cache != nil && c.Cache.Enabled {
		c.validateCache(&ve)
	}
	c.validateNotify(&ve)
	c.validateAuth(&ve)
	if c.Logging != nil {
		c.validateLogging(&ve)
	}
	if c.Server != nil {
		c.validateServerTimeouts(&ve)
	}

	if ve.Has() {
		return ve
	}
	return nil
}

func (c *Config) validateServer(ve *ValidationErrors) {
	if c.Port == "" {
		ve.add("port", c.Port, "port cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		ve.add("port", c.Port, "port must be a valid integer")
	} else if port < 1 || port > 65535 {
		ve.add("port", c.Port, "port must be between 1 and 65535")
	}

	if c.Environment != "" && !slices.Contains(validEnvironments, c.Environment) {
		ve.add("environment", c.Environment, "environment must be one of: "+strings.Join(validEnvironments, ", "))
	}
}

// validateDatabase allows an empty URL: Postgres only backs the subscriber mirror,
// saved plants and local admin accounts
func (c *Config) validateDatabase(ve *ValidationErrors) {
	if c.DatabaseURL == "" {
		if c.Auth.Provider == AuthLocal {
			ve.add("database_url", c.DatabaseURL, "database URL is required when AUTH_PROVIDER is local")
		}
		return
	}

	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		ve.add("database_url", redacted, "database URL must be a valid URL")
		return
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		ve.add("database_url", u.Scheme, "database URL must use postgres or postgresql scheme")
	}
	if u.Host == "" {
		ve.add("database_url", redacted, "database URL must include host")
	}
	if strings.Trim(u.Path, "/") == "" {
		ve.add("database_url", redacted, "database URL must include database name")
	}
}

func (c *Config) validateStorage(ve *ValidationErrors) {
	s := c.Storage
	if s.Endpoint == "" {
		ve.add("storage.endpoint", s.Endpoint, "storage endpoint cannot be empty")
	}

	switch {
	case s.BucketName == "":
		ve.add("storage.bucket_name", s.BucketName, "storage bucket name cannot be empty")
	case !isValidBucketName(s.BucketName):
		ve.add("storage.bucket_name", s.BucketName,
			"storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only")
	}

	if c.Environment == "production" {
		if s.AccessKeyID == "" || s.AccessKeyID == "minioadmin" {
			ve.add("storage.access_key_id", s.AccessKeyID, "storage access key ID must be set for production environment")
		}
		if s.SecretAccessKey == "" || s.SecretAccessKey == "minioadmin" {
			ve.add("storage.secret_access_key", redacted, "storage secret access key must be set for production environment")
		}
	}

	if s.MaxUploadSize > maxUploadLimit {
		ve.add("storage.max_upload_size", s.MaxUploadSize,
			fmt.Sprintf("max upload size cannot exceed %d bytes (100MB)", maxUploadLimit))
	}
}

func (c *Config) validateBackend(ve *ValidationErrors) {
	if !isHTTPURL(c.Backend.URL) {
		ve.add("backend.url", c.Backend.URL, "backend URL must be an absolute http or https URL")
	}
	if c.Backend.Timeout <= 0 {
		ve.add("backend.timeout", c.Backend.Timeout, "backend timeout must be greater than 0")
	}
	if c.Backend.CatalogTTL < 0 {
		ve.add("backend.catalog_ttl", c.Backend.CatalogTTL, "catalog TTL cannot be negative")
	}
	if !isHTTPURL(c.PlantNet.URL) {
		ve.add("plantnet.url", c.PlantNet.URL, "identification API URL must be an absolute http or https URL")
	}
}

func (c *Config) validateCache(ve *ValidationErrors) {
	if c.Cache.Address == "" {
		ve.add("cache.address", c.Cache.Address, "redis address is required when the cache is enabled")
	}
	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		ve.add("cache.database", c.Cache.Database, "redis database must be between 0 and 15")
	}
	if c.Cache.PoolSize <= 0 {
		ve.add("cache.pool_size", c.Cache.PoolSize, "redis pool size must be greater than 0")
	}
	if c.Cache.FlowTTL <= 0 {
		ve.add("cache.flow_ttl", c.Cache.FlowTTL, "identification flow TTL must be greater than 0")
	}
}

func (c *Config) validateNotify(ve *ValidationErrors) {
	switch c.Notify.Transport {
	case TransportEmailJS:
		if c.Environment == "production" && (c.Email.ServiceID == "" || c.Email.TemplateID == "" || c.Email.PublicKey == "") {
			ve.add("email", c.Email.ServiceID, "EmailJS service ID, template ID and public key are required in production")
		}
		if !isHTTPURL(c.Email.URL) {
			ve.add("email.url", c.Email.URL, "EmailJS URL must be an absolute http or https URL")
		}
	case TransportShoutrrr:
		if c.Notify.ShoutrrrURL == "" {
			ve.add("notify.shoutrrr_url", "", "a shoutrrr URL is required when NOTIFY_TRANSPORT is shoutrrr")
		}
	default:
		ve.add("notify.transport", c.Notify.Transport, "notify transport must be one of: emailjs, shoutrrr")
	}

	if c.Notify.Interval < 0 {
		ve.add("notify.interval", c.Notify.Interval, "notify interval cannot be negative")
	}
	if c.Notify.Concurrency < 1 {
		ve.add("notify.concurrency", c.Notify.Concurrency, "notify concurrency must be at least 1")
	}
}

func (c *Config) validateAuth(ve *ValidationErrors) {
	a := c.Auth
	switch a.Provider {
	case AuthSupabase:
		if c.Environment != "test" && (a.SupabaseURL == "" || a.SupabaseAnonKey == "") {
			ve.add("auth.supabase", a.SupabaseURL, "SUPABASE_URL and SUPABASE_ANON_KEY are required when AUTH_PROVIDER is supabase")
		}
		if a.SupabaseURL != "" && !isHTTPURL(a.SupabaseURL) {
			ve.add("auth.supabase_url", a.SupabaseURL, "supabase URL must be an absolute http or https URL")
		}
	case AuthLocal:
	default:
		ve.add("auth.provider", a.Provider, "auth provider must be one of: supabase, local")
	}

	if c.Environment == "production" && (a.SessionSecret == defaultSessionSecret || len(a.SessionSecret) < 32) {
		ve.add("auth.session_secret", redacted, "session secret must be set to at least 32 characters in production")
	}
	if a.SessionMaxAge <= 0 {
		ve.add("auth.session_max_age", a.SessionMaxAge, "session max age must be greater than 0")
	}
}

func (c *Config) validateLogging(ve *ValidationErrors) {
	if !containsFold(validLogLevels, c.Logging.Level) {
		ve.add("logging.level", c.Logging.Level, "logging level must be one of: "+strings.Join(validLogLevels, ", "))
	}
	if !containsFold(validLogFormats, c.Logging.Format) {
		ve.add("logging.format", c.Logging.Format, "logging format must be one of: "+strings.Join(validLogFormats, ", "))
	}
}

func (c *Config) validateServerTimeouts(ve *ValidationErrors) {
	bounded := []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
	}
	for _, t := range bounded {
		if t.value <= 0 {
			ve.add(t.field, t.value, "timeout must be greater than 0")
		} else if t.value > maxHTTPTimeout {
			ve.add(t.field, t.value, "timeout should not exceed 5 minutes")
		}
	}
	if c.Server.IdleTimeout <= 0 {
		ve.add("server.idle_timeout", c.Server.IdleTimeout, "idle timeout must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		ve.add("server.shutdown_timeout", c.Server.ShutdownTimeout, "shutdown timeout must be greater than 0")
	}
}

func containsFold(values []string, v string) bool {
	return slices.ContainsFunc(values, func(s string) bool { return strings.EqualFold(s, v) })
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isValidBucketName applies the S3 naming rules MinIO enforces
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}
	if net.ParseIP(name) != nil {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if !isLowerAlphaNum(b) && b != '-' {
			return false
		}
		if b == '-' && name[i-1] == '-' {
			return false
		}
	}
	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// MustValidate panics when the configuration is invalid
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("configuration validation failed: %v", err))
	}
}
