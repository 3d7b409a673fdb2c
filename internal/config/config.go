package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	DefaultRoom       string        `mapstructure:"default_room" yaml:"default_room"`
	HistoryLimit      int           `mapstructure:"history_limit" yaml:"history_limit"`
	ClientBuffer      int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	RedisURL          string        `mapstructure:"redis_url" yaml:"redis_url"`
	CORSOrigins       []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	WSRateLimit       int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"` // messages per minute per connection, 0 disables

	Toxicity ToxicityConfig `mapstructure:"toxicity" yaml:"toxicity"`
	Advisory AdvisoryConfig `mapstructure:"advisory" yaml:"advisory"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
}

// ToxicityConfig configures the external toxicity scorer.
// An empty URL runs the server without toxicity scoring.
type ToxicityConfig struct {
	Threshold float64       `mapstructure:"threshold" yaml:"threshold"`
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// AdvisoryConfig selects the text generation backend used for tone and coaching.
type AdvisoryConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"` // none, openai, gemini
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StoreConfig selects the message store driver.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, postgres
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// AuthConfig guards moderation endpoints. An empty JWTSecret leaves them open.
type AuthConfig struct {
	JWTSecret             string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ModeratorPasswordHash string        `mapstructure:"moderator_password_hash" yaml:"moderator_password_hash"`
	TokenTTL              time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DefaultRoom:       "general",
		HistoryLimit:      50,
		ClientBuffer:      32,
		MaxMessageBytes:   64 << 10,
		WSRateLimit:       120,
		Toxicity: ToxicityConfig{
			Threshold: 0.5,
			Timeout:   5 * time.Second,
			CacheTTL:  time.Hour,
		},
		Advisory: AdvisoryConfig{
			Provider: "none",
			Model:    "gpt-3.5-turbo",
			Timeout:  10 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "chatguard.db",
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.DSN != "" {
		c.Store.DSN = other.Store.DSN
	}
	if other.Advisory.Provider != "" {
		c.Advisory.Provider = other.Advisory.Provider
	}
}
