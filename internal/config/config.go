package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
	// MaxTokenDecimals bounds the token decimal configuration
	MaxTokenDecimals = 18
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Aptos     AptosConfig     `yaml:"aptos"`
	Payment   PaymentConfig   `yaml:"payment"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AptosConfig holds fullnode REST endpoint configuration
type AptosConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PaymentConfig holds payment window, pricing and verification configuration
type PaymentConfig struct {
	RecipientAddress     string        `yaml:"recipient_address"`
	ChainID              int           `yaml:"chain_id"`
	Network              string        `yaml:"network"`
	TokenDecimals        int           `yaml:"token_decimals"`
	Window               time.Duration `yaml:"window"`
	PollInterval         time.Duration `yaml:"poll_interval"`
	InlineVerifyTimeout  time.Duration `yaml:"inline_verify_timeout"`
	ConfirmVerifyTimeout time.Duration `yaml:"confirm_verify_timeout"`
	CleanupDelay         time.Duration `yaml:"cleanup_delay"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
}

// JobsConfig holds job catalog configuration
type JobsConfig struct {
	MaxPingCount   int           `yaml:"max_ping_count"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	PingPriceOctas int64         `yaml:"ping_price_octas"`
}

// RateLimitConfig holds per-client request rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// ArchiveConfig holds the optional settlement receipt archive configuration
type ArchiveConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// EventsConfig holds the optional lifecycle event publisher configuration
type EventsConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	VHost              string        `yaml:"vhost"`
	Exchange           string        `yaml:"exchange"`
	ExchangeType       string        `yaml:"exchange_type"`
	ExchangeDurable    bool          `yaml:"exchange_durable"`
	RoutingKey         string        `yaml:"routing_key"`
	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryInterval      time.Duration `yaml:"retry_interval"`
	Heartbeat          time.Duration `yaml:"heartbeat"`
	PublishRetries     int           `yaml:"publish_retries"`
	PublishRetryDelay  time.Duration `yaml:"publish_retry_delay"`
	PublishBackoffMult float64       `yaml:"publish_backoff_multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Aptos.RPCURL == "" {
		return fmt.Errorf("aptos rpc_url is required")
	}

	if c.Payment.RecipientAddress == "" {
		return fmt.Errorf("payment recipient_address is required")
	}

	if c.Payment.ChainID <= 0 {
		return fmt.Errorf("payment chain_id must be greater than 0")
	}

	if c.Payment.TokenDecimals < 1 || c.Payment.TokenDecimals > MaxTokenDecimals {
		return fmt.Errorf("invalid token_decimals: %d (must be between 1 and %d)", c.Payment.TokenDecimals, MaxTokenDecimals)
	}

	if c.Payment.Window <= 0 {
		return fmt.Errorf("payment window must be greater than 0")
	}

	if c.Payment.InlineVerifyTimeout <= 0 {
		return fmt.Errorf("payment inline_verify_timeout must be greater than 0")
	}

	if c.Payment.ConfirmVerifyTimeout <= 0 {
		return fmt.Errorf("payment confirm_verify_timeout must be greater than 0")
	}

	if c.Jobs.MaxPingCount <= 0 {
		return fmt.Errorf("jobs max_ping_count must be greater than 0")
	}

	if c.Jobs.PingPriceOctas <= 0 {
		return fmt.Errorf("jobs ping_price_octas must be greater than 0")
	}

	if c.Archive.Enabled {
		if c.Archive.Host == "" {
			return fmt.Errorf("archive host is required when archive is enabled")
		}
		if c.Archive.Port < MinPort || c.Archive.Port > MaxPort {
			return fmt.Errorf("invalid archive port: %d (must be between %d and %d)", c.Archive.Port, MinPort, MaxPort)
		}
		if c.Archive.Database == "" {
			return fmt.Errorf("archive database is required when archive is enabled")
		}
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required when events are enabled")
		}
		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}
		if c.Events.Exchange == "" {
			return fmt.Errorf("events exchange is required when events are enabled")
		}
	}

	return nil
}
