// Package models defines the core data structures for the rubrik_polaris
// application: the YAML configuration and the typed records decoded from
// normalized GraphQL responses.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/logging"
)

// DefaultRootDomain is the Polaris SaaS root used when rootDomain is unset.
const DefaultRootDomain = "my.rubrik.com"

// Endpoint paths below the tenant base URL.
const (
	SessionPath = "/api/session"
	GraphQLPath = "/api/graphql"
)

// TenantURL returns https://{domain}.{rootDomain}. An empty rootDomain
// selects DefaultRootDomain.
func TenantURL(domain, rootDomain string) string {
	if rootDomain == "" {
		rootDomain = DefaultRootDomain
	}
	return fmt.Sprintf("https://%s.%s", domain, rootDomain)
}

// Default values applied by SetDefaults.
const (
	DefaultTimeout          = "15s"
	DefaultLoggingLevel     = "debug"
	DefaultServerHost       = "0.0.0.0"
	DefaultServerPort       = "2113"
	DefaultServerURI        = "/metrics"
	DefaultScrapingInterval = "5m"
)

// Config represents the complete application configuration.
// It includes the Polaris connection, logging, the exporter HTTP server and
// OpenTelemetry settings.
type Config struct {
	Polaris struct {
		Domain     string `yaml:"domain"`
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		RootDomain string `yaml:"rootDomain"`
		Insecure   bool   `yaml:"insecure"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"polaris"`

	Logging struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
		LogName string `yaml:"logName"`
	} `yaml:"logging"`

	Server struct {
		Port             string `yaml:"port"`
		Host             string `yaml:"host"`
		URI              string `yaml:"uri"`
		ScrapingInterval string `yaml:"scrapingInterval"`
	} `yaml:"server"`

	OpenTelemetry struct {
		Enabled      bool    `yaml:"enabled"`
		Endpoint     string  `yaml:"endpoint"`
		Insecure     bool    `yaml:"insecure"`
		SamplingRate float64 `yaml:"samplingRate"`
	} `yaml:"opentelemetry"`
}

// SetDefaults sets default values for optional configuration fields.
// This method is called automatically by Validate() before validation checks.
func (c *Config) SetDefaults() {
	if c.Polaris.RootDomain == "" {
		c.Polaris.RootDomain = DefaultRootDomain
	}
	if c.Polaris.Timeout == "" {
		c.Polaris.Timeout = DefaultTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLoggingLevel
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.URI == "" {
		c.Server.URI = DefaultServerURI
	}
	if c.Server.ScrapingInterval == "" {
		c.Server.ScrapingInterval = DefaultScrapingInterval
	}
	if c.OpenTelemetry.Enabled && c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// Validate checks if the configuration is valid and returns an error if not.
// It calls SetDefaults() first so optional fields carry their defaults.
//
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	c.SetDefaults()

	if c.Polaris.Domain == "" {
		return errors.New("polaris domain is required")
	}
	if c.Polaris.Username == "" {
		return errors.New("polaris username is required")
	}
	if c.Polaris.Password == "" {
		return errors.New("polaris password is required")
	}
	if d, err := time.ParseDuration(c.Polaris.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid polaris timeout: %s", c.Polaris.Timeout)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if _, err := time.ParseDuration(c.Server.ScrapingInterval); err != nil {
		return fmt.Errorf("invalid scraping interval: %w", err)
	}

	if c.OpenTelemetry.Enabled {
		if c.OpenTelemetry.Endpoint == "" {
			return errors.New("opentelemetry endpoint is required when tracing is enabled")
		}
		if c.OpenTelemetry.SamplingRate < 0 || c.OpenTelemetry.SamplingRate > 1 {
			return fmt.Errorf("invalid opentelemetry sampling rate: %v (must be between 0.0 and 1.0)", c.OpenTelemetry.SamplingRate)
		}
	}

	return nil
}

// rootDomain returns the configured root domain or the SaaS default.
func (c *Config) rootDomain() string {
	if c.Polaris.RootDomain == "" {
		return DefaultRootDomain
	}
	return c.Polaris.RootDomain
}

// GetBaseURL returns the tenant base URL.
//
// Example: "https://acme.my.rubrik.com"
func (c *Config) GetBaseURL() string {
	return TenantURL(c.Polaris.Domain, c.rootDomain())
}

// GetSessionURL returns the session endpoint used for the credential exchange.
func (c *Config) GetSessionURL() string {
	return c.GetBaseURL() + SessionPath
}

// GetGraphQLURL returns the GraphQL endpoint.
func (c *Config) GetGraphQLURL() string {
	return c.GetBaseURL() + GraphQLPath
}

// GetTimeout returns the per-request timeout, falling back to the default
// when the configured value cannot be parsed.
func (c *Config) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Polaris.Timeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultTimeout)
	return d
}

// GetServerAddress returns the exporter bind address.
// Format: host:port
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetScrapingDuration parses and returns the scraping interval as a time.Duration.
// The scraping interval is both the event window and the SLA cache TTL.
func (c *Config) GetScrapingDuration() (time.Duration, error) {
	return time.ParseDuration(c.Server.ScrapingInterval)
}

// IsOTelEnabled reports whether OpenTelemetry tracing is configured.
func (c *Config) IsOTelEnabled() bool {
	return c.OpenTelemetry.Enabled
}

// LoggingOptions returns the logging section as a logging.Options value.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Enabled: c.Logging.Enabled,
		Level:   c.Logging.Level,
		LogName: c.Logging.LogName,
	}
}

// MaskPassword returns a masked version of the password for safe logging.
// Shows the first 2 and last 2 characters with asterisks in between.
//
// For passwords of 8 characters or fewer, returns "****".
func (c *Config) MaskPassword() string {
	if len(c.Polaris.Password) <= 8 {
		return "****"
	}
	return c.Polaris.Password[:2] + "****" + c.Polaris.Password[len(c.Polaris.Password)-2:]
}

// SameTenant reports whether other targets the same tenant with the same
// credentials, i.e. whether an existing session can be kept.
func (c *Config) SameTenant(other *Config) bool {
	return c.Polaris.Domain == other.Polaris.Domain &&
		c.rootDomain() == other.rootDomain() &&
		c.Polaris.Username == other.Polaris.Username &&
		c.Polaris.Password == other.Polaris.Password &&
		c.Polaris.Insecure == other.Polaris.Insecure
}
