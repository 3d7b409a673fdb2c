package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "CHATGUARD"
	envConfigDefaultPath = "CHATGUARD_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars (.env included) < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) && logger != nil {
		logger.Warn().Err(err).Msg("failed to load .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Toxicity.Threshold < 0 || c.Toxicity.Threshold > 1 {
		return fmt.Errorf("toxicity.threshold must be within [0,1], got %v", c.Toxicity.Threshold)
	}
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Advisory.Provider) {
	case "", "none", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported advisory.provider %q", c.Advisory.Provider)
	}
	if c.WSRateLimit < 0 {
		return errors.New("ws_rate_limit must not be negative")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history_limit must be positive")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve nested values.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("default_room", cfg.DefaultRoom)
	v.SetDefault("history_limit", cfg.HistoryLimit)
	v.SetDefault("client_buffer", cfg.ClientBuffer)
	v.SetDefault("redis_url", cfg.RedisURL)
	v.SetDefault("cors_origins", cfg.CORSOrigins)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)
	v.SetDefault("ws_rate_limit", cfg.WSRateLimit)

	v.SetDefault("toxicity.threshold", cfg.Toxicity.Threshold)
	v.SetDefault("toxicity.url", cfg.Toxicity.URL)
	v.SetDefault("toxicity.api_key", cfg.Toxicity.APIKey)
	v.SetDefault("toxicity.timeout", cfg.Toxicity.Timeout)
	v.SetDefault("toxicity.cache_ttl", cfg.Toxicity.CacheTTL)

	v.SetDefault("advisory.provider", cfg.Advisory.Provider)
	v.SetDefault("advisory.base_url", cfg.Advisory.BaseURL)
	v.SetDefault("advisory.api_key", cfg.Advisory.APIKey)
	v.SetDefault("advisory.model", cfg.Advisory.Model)
	v.SetDefault("advisory.timeout", cfg.Advisory.Timeout)

	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.dsn", cfg.Store.DSN)

	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.moderator_password_hash", cfg.Auth.ModeratorPasswordHash)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
