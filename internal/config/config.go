package config

import "time"

// Config holds client configuration values.
type Config struct {
	APIBaseURL        string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	GatewayURL        string        `mapstructure:"gateway_url" yaml:"gateway_url"`
	CredentialsPath   string        `mapstructure:"credentials_path" yaml:"credentials_path"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		APIBaseURL:        "http://localhost:4000",
		GatewayURL:        "ws://localhost:4000/websocket/connect",
		CredentialsPath:   "zupplin.db",
		HeartbeatInterval: 60 * time.Second,
		DialTimeout:       10 * time.Second,
		RequestTimeout:    15 * time.Second,
		LogLevel:          "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.GatewayURL != "" {
		c.GatewayURL = other.GatewayURL
	}
	if other.CredentialsPath != "" {
		c.CredentialsPath = other.CredentialsPath
	}
	if other.HeartbeatInterval != 0 {
		c.HeartbeatInterval = other.HeartbeatInterval
	}
	if other.DialTimeout != 0 {
		c.DialTimeout = other.DialTimeout
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
