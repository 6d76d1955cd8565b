package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Datasource   DatasourceConfig   `yaml:"datasource"`
	Database     DatabaseConfig     `yaml:"database"`
	Supabase     SupabaseConfig     `yaml:"supabase"`
	Search       SearchConfig       `yaml:"search"`
	ExchangeRate ExchangeRateConfig `yaml:"exchange_rate"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Leads        LeadsConfig        `yaml:"leads"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	UserAgent    string             `yaml:"user_agent"`
	Logging      LoggingConfig      `yaml:"logging"`
	Timezone     string             `yaml:"timezone"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatasourceConfig selects where listings are read from
type DatasourceConfig struct {
	// Type is one of supabase, mysql, postgres, meilisearch, file
	Type                string `yaml:"type"`
	SeedFile            string `yaml:"seed_file"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SupabaseConfig contains the hosted store settings
type SupabaseConfig struct {
	URL            string `yaml:"url"`
	ServiceKey     string `yaml:"service_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PropertyTable  string `yaml:"property_table"`
	ProjectTable   string `yaml:"project_table"`
	LeadsTable     string `yaml:"leads_table"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// ExchangeRateConfig contains UF indicator settings
type ExchangeRateConfig struct {
	TTLHours       int    `yaml:"ttl_hours"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MindicadorURL  string `yaml:"mindicador_url"`
	SIIURL         string `yaml:"sii_url"`
	SIIRender      string `yaml:"sii_render"` // "http" or "browser"
	ChromePath     string `yaml:"chrome_path"`

	BreakerThreshold   int `yaml:"breaker_threshold"`
	BreakerResetMinute int `yaml:"breaker_reset_minutes"`
}

// RateLimitConfig contains rate limiting settings for the lead forms
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
	GlobalPerHour     int  `yaml:"global_per_hour"`
}

// LeadsConfig contains lead validation limits
type LeadsConfig struct {
	// Store is supabase, mysql or postgres; empty follows the datasource
	Store         string `yaml:"store"`
	NameMin       int    `yaml:"name_min"`
	NameMax       int    `yaml:"name_max"`
	EmailMin      int    `yaml:"email_min"`
	EmailMax      int    `yaml:"email_max"`
	MessageMin    int    `yaml:"message_min"`
	MessageMax    int    `yaml:"message_max"`
	PhoneMax      int    `yaml:"phone_max"`
	TimeoutSecond int    `yaml:"timeout_seconds"`
}

// SchedulerConfig contains cron specs. Empty disables a job.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	UFRefresh   string `yaml:"uf_refresh"`
	UFRetry     string `yaml:"uf_retry"`
	Reindex     string `yaml:"reindex"`
	SweepIdle   string `yaml:"sweep_idle"`
	WarmOnStart bool   `yaml:"warm_on_start"`
}

// SessionsConfig contains filter session limits
type SessionsConfig struct {
	IdleMinutes         int `yaml:"idle_minutes"`
	MaxSessions         int `yaml:"max_sessions"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8084",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Datasource: DatasourceConfig{
			Type:                "supabase",
			QueryTimeoutSeconds: 15,
		},
		Database: DatabaseConfig{
			MySQL:    MySQLConfig{Host: "localhost", Port: 3306, Database: "brokerage"},
			Postgres: PostgresConfig{Host: "localhost", Port: 5432, Database: "brokerage", SSLMode: "disable"},
		},
		Supabase: SupabaseConfig{
			TimeoutSeconds: 30,
			PropertyTable:  "propiedades",
			ProjectTable:   "proyectos",
			LeadsTable:     "leads",
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{Index: "listings"},
		},
		ExchangeRate: ExchangeRateConfig{
			TTLHours:           12,
			TimeoutSeconds:     8,
			MindicadorURL:      "https://mindicador.cl/api/uf",
			SIIURL:             "https://www.sii.cl/valores_y_fechas/uf/uf%d.htm",
			SIIRender:          "http",
			BreakerThreshold:   3,
			BreakerResetMinute: 15,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 3,
			RequestsPerHour:   20,
			RequestsPerDay:    50,
			GlobalPerHour:     600,
		},
		Leads: LeadsConfig{
			NameMin:       2,
			NameMax:       100,
			EmailMin:      5,
			EmailMax:      200,
			MessageMin:    10,
			MessageMax:    2000,
			PhoneMax:      30,
			TimeoutSecond: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			UFRefresh:   "5 0 * * *",
			UFRetry:     "17 * * * *",
			Reindex:     "30 3 * * *",
			SweepIdle:   "*/10 * * * *",
			WarmOnStart: true,
		},
		Sessions: SessionsConfig{
			IdleMinutes:         30,
			MaxSessions:         10000,
			FetchTimeoutSeconds: 15,
		},
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		Logging: LoggingConfig{
			Level:       "info",
			LogRequests: true,
		},
		Timezone: "America/Santiago",
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Location returns the configured time zone, UTC if unknown
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetQueryTimeout returns the listing query timeout as a duration
func (c *DatasourceConfig) GetQueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// GetTimeout returns the Supabase HTTP timeout as a duration
func (c *SupabaseConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetTTL returns how long a fetched UF value stays fresh
func (c *ExchangeRateConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// GetTimeout returns the indicator HTTP timeout as a duration
func (c *ExchangeRateConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetBreakerReset returns how long an open circuit waits before retrying
func (c *ExchangeRateConfig) GetBreakerReset() time.Duration {
	return time.Duration(c.BreakerResetMinute) * time.Minute
}

// GetTimeout returns the lead store timeout as a duration
func (c *LeadsConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// GetIdleTTL returns how long an unused session is kept
func (c *SessionsConfig) GetIdleTTL() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// GetFetchTimeout returns the per-search timeout as a duration
func (c *SessionsConfig) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}
