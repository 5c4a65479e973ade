package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Symbol binds a display name to its broker instrument key.
type Symbol struct {
	Name          string `yaml:"name"`
	InstrumentKey string `yaml:"instrument_key"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type string `yaml:"type"`
	} `yaml:"backend"`
	Upstox struct {
		BaseURL        string        `yaml:"base_url"`
		ClientID       string        `yaml:"client_id"`
		ClientSecret   string        `yaml:"client_secret"`
		RefreshToken   string        `yaml:"refresh_token"`
		AccessToken    string        `yaml:"access_token"`
		FeedURL        string        `yaml:"feed_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"upstox"`
	Symbols   []Symbol `yaml:"symbols"`
	Collector struct {
		Interval  time.Duration `yaml:"interval"`
		ExpiryTTL time.Duration `yaml:"expiry_ttl"`
		ForceRun  bool          `yaml:"force_run"`
		MaxRPS    int           `yaml:"max_rps"`
	} `yaml:"collector"`
	Scanner struct {
		SignalCacheTTL time.Duration `yaml:"signal_cache_ttl"`
	} `yaml:"scanner"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		SnapshotsTopic string   `yaml:"snapshots_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Queue    struct {
			Workers    int           `yaml:"workers"`
			QueueSize  int           `yaml:"queue_size"`
			RetryLimit int           `yaml:"retry_limit"`
			RetryDelay time.Duration `yaml:"retry_delay"`
		} `yaml:"queue"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("UPSTOX_CLIENT_ID"); v != "" {
		c.Upstox.ClientID = v
	}
	if v := os.Getenv("UPSTOX_CLIENT_SECRET"); v != "" {
		c.Upstox.ClientSecret = v
	}
	if v := os.Getenv("UPSTOX_REFRESH_TOKEN"); v != "" {
		c.Upstox.RefreshToken = v
	}
	if v := os.Getenv("UPSTOX_ACCESS_TOKEN"); v != "" {
		c.Upstox.AccessToken = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		// comma list of name:instrument_key pairs
		symbols := make([]Symbol, 0)
		for _, pair := range strings.Split(v, ",") {
			name, key, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if !ok || name == "" || key == "" {
				return nil, fmt.Errorf("SYMBOLS entry %q must be name:instrument_key", pair)
			}
			symbols = append(symbols, Symbol{Name: name, InstrumentKey: key})
		}
		c.Symbols = symbols
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_SNAPSHOTS_TOPIC"); v != "" {
		c.Kafka.SnapshotsTopic = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("FORCE_RUN"); v == "true" || v == "1" {
		c.Collector.ForceRun = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols cannot be empty")
	}
	for _, s := range c.Symbols {
		if s.Name == "" || s.InstrumentKey == "" {
			return fmt.Errorf("each symbol needs name and instrument_key")
		}
	}
	if c.Upstox.AccessToken == "" {
		// without a direct token the refresh-token flow must be fully configured
		if c.Upstox.ClientID == "" || c.Upstox.ClientSecret == "" || c.Upstox.RefreshToken == "" {
			return fmt.Errorf("upstox credentials required: access_token or client_id/client_secret/refresh_token")
		}
	}
	if c.Collector.Interval <= 0 {
		return fmt.Errorf("collector.interval must be positive")
	}
	return nil
}
