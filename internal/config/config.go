// Package config loads service configuration from defaults, an optional YAML
// file and ASKHUB_-prefixed environment variables, in increasing priority.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	DB     DBConfig     `koanf:"db"`
	Redis  RedisConfig  `koanf:"redis"`
	Auth   AuthConfig   `koanf:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr   string        `koanf:"listen_addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `koanf:"level"`
}

// DBConfig holds identity store configuration.
type DBConfig struct {
	DSN          string        `koanf:"dsn"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	OpTimeout    time.Duration `koanf:"op_timeout"`
}

// RedisConfig holds the shared revocation blocklist configuration. An empty
// Addr selects the in-process blocklist (single-instance deployments only).
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig holds the auth core configuration.
type AuthConfig struct {
	Secret                   string        `koanf:"secret"`
	AccessTTL                time.Duration `koanf:"access_ttl"`
	RefreshTTL               time.Duration `koanf:"refresh_ttl"`
	VerifyTTL                time.Duration `koanf:"verify_ttl"`
	BcryptCost               int           `koanf:"bcrypt_cost"`
	MaxParallelHashes        int           `koanf:"max_parallel_hashes"`
	RegistrationOpen         bool          `koanf:"registration_open"`
	AllowedEmailDomains      []string      `koanf:"allowed_email_domains"`
	RequireEmailVerification bool          `koanf:"require_email_verification"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:   ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		DB: DBConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			OpTimeout:    3 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       14 * 24 * time.Hour,
			VerifyTTL:        24 * time.Hour,
			RegistrationOpen: true,
		},
	}
}
