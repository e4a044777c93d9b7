// Package config provides the application configuration, loaded from
// defaults, an optional YAML file, and ISSUESCOUT_* environment
// variables, in that order of precedence.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Search   SearchConfig   `mapstructure:"search"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// GitHubConfig points the transports at the API.
type GitHubConfig struct {
	Token           string        `mapstructure:"token"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	GraphQLEndpoint string        `mapstructure:"graphql_endpoint"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
}

// ThrottleConfig tunes request pacing.
type ThrottleConfig struct {
	Spacing time.Duration `mapstructure:"spacing"`
}

// CacheConfig tunes result caching.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SearchConfig holds search defaults applied when flags are absent.
type SearchConfig struct {
	PageSize int      `mapstructure:"page_size"`
	Labels   []string `mapstructure:"labels"`
	Language string   `mapstructure:"language"`
}

// ServerConfig contains HTTP server configuration for serve mode.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig contains database configuration for the watchlist store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
