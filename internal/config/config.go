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
)

// Duration wraps time.Duration so config values can be written as "30s" or
// "5m"; plain yaml decoding only accepts integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Logging    LoggingConfig    `yaml:"logging"`
	App        AppConfig        `yaml:"app"`
	Processing ProcessingConfig `yaml:"processing"`
	Backends   BackendsConfig   `yaml:"backends"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	User            string   `yaml:"user"`
	Password        string   `yaml:"password"`
	Database        string   `yaml:"database"`
	SSLMode         string   `yaml:"sslmode"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds the optional lifecycle event exchange configuration.
// When disabled the service relies on the job_events table alone.
type RabbitMQConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	User       string   `yaml:"user"`
	Password   string   `yaml:"password"`
	VHost      string   `yaml:"vhost"`
	Exchange   string   `yaml:"exchange"`
	RoutingKey string   `yaml:"routing_key"`
	Heartbeat  Duration `yaml:"heartbeat"`
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

// ProcessingConfig holds job orchestration settings
type ProcessingConfig struct {
	URLConcurrency   int      `yaml:"url_concurrency"`
	FetchTimeout     Duration `yaml:"fetch_timeout"`
	SynthesisTimeout Duration `yaml:"synthesis_timeout"`
	LmTimeout        Duration `yaml:"lm_timeout"`
	ArtifactsDir     string   `yaml:"artifacts_dir"`
	VoiceMaxBytes    int64    `yaml:"voice_max_bytes"`
}

// BackendsConfig holds the external capability endpoints
type BackendsConfig struct {
	FirecrawlBaseURL string   `yaml:"firecrawl_base_url"`
	FirecrawlAPIKey  string   `yaml:"firecrawl_api_key"`
	LmBaseURL        string   `yaml:"lm_base_url"`
	LmHTTPTimeout    Duration `yaml:"lm_http_timeout"`
	TtsBaseURL       string   `yaml:"tts_base_url"`
}

// Load reads and parses the configuration file. Environment variables
// override the secrets that should not live in the file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if key := os.Getenv("FIRECRAWL_API_KEY"); key != "" {
		config.Backends.FirecrawlAPIKey = key
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}
	}

	if c.Processing.URLConcurrency < 1 {
		return fmt.Errorf("processing url_concurrency must be at least 1")
	}

	if c.Processing.ArtifactsDir == "" {
		return fmt.Errorf("processing artifacts_dir is required")
	}

	if c.Backends.LmBaseURL == "" {
		return fmt.Errorf("lm base url is required")
	}

	if c.Backends.TtsBaseURL == "" {
		return fmt.Errorf("tts base url is required")
	}

	return nil
}
