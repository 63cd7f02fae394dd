// Package config loads the gateway configuration from YAML with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the triage gateway.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Provider   ProviderConfig   `yaml:"provider"`
	Session    SessionConfig    `yaml:"session"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig defines the observability HTTP server settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ChannelsConfig defines chat surface configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	WebChat  WebChatConfig  `yaml:"webchat"`
}

// TelegramConfig defines Telegram channel settings.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// DiscordConfig defines Discord channel settings.
type DiscordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// WebChatConfig defines WebChat channel settings.
type WebChatConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ProviderConfig defines the remote model pool: ranked credentials and
// ranked models whose cross product forms the fallback slots.
type ProviderConfig struct {
	APIKeys           []string `yaml:"api_keys"`
	Models            []string `yaml:"models"`
	BaseURL           string   `yaml:"base_url,omitempty"`
	Cooldown          string   `yaml:"cooldown"`
	RequestTimeout    string   `yaml:"request_timeout"`
	MaxResponseLength int      `yaml:"max_response_length"`
}

// GetCooldown returns the rate-limit cooldown as a time.Duration.
func (p *ProviderConfig) GetCooldown() time.Duration {
	return parseDuration(p.Cooldown, 5*time.Minute)
}

// GetRequestTimeout returns the per-call timeout as a time.Duration.
func (p *ProviderConfig) GetRequestTimeout() time.Duration {
	return parseDuration(p.RequestTimeout, 30*time.Second)
}

// SessionConfig defines consultation session settings.
type SessionConfig struct {
	Timeout         string `yaml:"timeout"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// GetTimeout returns the inactivity timeout as a time.Duration.
func (s *SessionConfig) GetTimeout() time.Duration {
	return parseDuration(s.Timeout, 30*time.Minute)
}

// GetCleanupSchedule returns the cron spec for expired-session sweeps.
func (s *SessionConfig) GetCleanupSchedule() string {
	if s.CleanupSchedule == "" {
		return "@every 10m"
	}
	return s.CleanupSchedule
}

// EnrichmentConfig defines the optional knowledge-service connection.
type EnrichmentConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key,omitempty"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`
}

// GetTimeout returns the lookup timeout as a time.Duration.
func (e *EnrichmentConfig) GetTimeout() time.Duration {
	return parseDuration(e.Timeout, 30*time.Second)
}

// GetCacheTTL returns the result cache TTL as a time.Duration.
func (e *EnrichmentConfig) GetCacheTTL() time.Duration {
	return parseDuration(e.CacheTTL, 15*time.Minute)
}

// RedisConfig defines the optional enrichment cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from a YAML file with environment variable
// overrides applied on top.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides pulls secrets from the environment. OPENAI_API_KEY and
// OPENAI_API_KEY_2 through _5 are collected in order into the ranked
// credential list when the YAML does not set one.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Channels.Telegram.Token = token
		c.Channels.Telegram.Enabled = true
	}
	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		c.Channels.Discord.Token = token
		c.Channels.Discord.Enabled = true
	}
	if apiKey := os.Getenv("ENRICHMENT_API_KEY"); apiKey != "" {
		c.Enrichment.APIKey = apiKey
	}

	if len(c.Provider.APIKeys) == 0 {
		keys := []string{os.Getenv("OPENAI_API_KEY")}
		for i := 2; i <= 5; i++ {
			keys = append(keys, os.Getenv(fmt.Sprintf("OPENAI_API_KEY_%d", i)))
		}
		for _, key := range keys {
			if key != "" {
				c.Provider.APIKeys = append(c.Provider.APIKeys, key)
			}
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Provider.Models) == 0 {
		c.Provider.Models = []string{"gpt-4o-mini", "gpt-4o"}
	}
	if c.Provider.MaxResponseLength == 0 {
		c.Provider.MaxResponseLength = 2000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the loaded configuration for fatal errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Provider.APIKeys) == 0 {
		return fmt.Errorf("at least one provider API key is required (set provider.api_keys or OPENAI_API_KEY)")
	}
	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		return fmt.Errorf("telegram channel enabled without a token")
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		return fmt.Errorf("discord channel enabled without a token")
	}
	if c.Channels.WebChat.Enabled && c.Channels.WebChat.Port <= 0 {
		return fmt.Errorf("webchat channel enabled without a port")
	}
	if c.Enrichment.Enabled && c.Enrichment.URL == "" {
		return fmt.Errorf("enrichment enabled without a url")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
