package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
)

// Lookback bounds a "most recent N records" query.
type Lookback struct {
	MaxRecords int           `yaml:"max_records"`
	MaxAge     time.Duration `yaml:"max_age"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Enabled      bool    `yaml:"enabled"`
			Burst        float64 `yaml:"burst" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Auth struct {
		InternalToken string `yaml:"internal_token"`
	} `yaml:"auth"`
	Storage struct {
		Backend string `yaml:"backend" default:"clickhouse"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fusionrisk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"20"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"10"`
		ConnLifetime time.Duration `yaml:"conn_lifetime" default:"5m"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"fusionrisk"`

		// MemoryMaxSize bounds the in-process fallback used when Redis is disabled.
		MemoryMaxSize int `yaml:"memory_max_size" default:"1000"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		MetricsTopic     string   `yaml:"metrics_topic" default:"fusionrisk.metric_events"`
		RiskEventsTopic  string   `yaml:"risk_events_topic" default:"fusionrisk.risk_events"`
		LogsTopic        string   `yaml:"logs_topic"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"snappy"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"fusionrisk-ingest"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Pipeline struct {
		Baseline struct {
			Lookback Lookback `yaml:"lookback"`
		} `yaml:"baseline"`
		Forecast struct {
			Lookback Lookback `yaml:"lookback"`
		} `yaml:"forecast"`
		Calibration struct {
			Lookback Lookback      `yaml:"lookback"`
			Interval time.Duration `yaml:"interval"`
		} `yaml:"calibration"`
	} `yaml:"pipeline"`
	Reinforcement struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"reinforcement"`
}

// Default lookback windows when none are configured.
const (
	DefaultBaselineRecords    = 500
	DefaultForecastRecords    = 500
	DefaultCalibrationRecords = 100
)

// Load reads and parses a YAML configuration file on top of tag defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes raw YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyLookbackDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
// A .env file in the working directory is honoured when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyLookbackDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INTERNAL_TOKEN"); v != "" {
		c.Auth.InternalToken = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REINFORCEMENT_URL"); v != "" {
		c.Reinforcement.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
}

func (c *Config) applyLookbackDefaults() {
	if c.Pipeline.Baseline.Lookback.MaxRecords <= 0 {
		c.Pipeline.Baseline.Lookback.MaxRecords = DefaultBaselineRecords
	}
	if c.Pipeline.Forecast.Lookback.MaxRecords <= 0 {
		c.Pipeline.Forecast.Lookback.MaxRecords = DefaultForecastRecords
	}
	if c.Pipeline.Calibration.Lookback.MaxRecords <= 0 {
		c.Pipeline.Calibration.Lookback.MaxRecords = DefaultCalibrationRecords
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Auth.InternalToken == "" {
		return fmt.Errorf("auth.internal_token is required")
	}
	switch c.Storage.Backend {
	case BackendClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be '%s' or '%s', got '%s'", BackendClickHouse, BackendPostgres, c.Storage.Backend)
	}
	if c.Reinforcement.URL == "" {
		return fmt.Errorf("reinforcement.url is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Pipeline.Calibration.Interval < 0 {
		return fmt.Errorf("pipeline.calibration.interval cannot be negative")
	}
	for name, lb := range map[string]Lookback{
		"baseline":    c.Pipeline.Baseline.Lookback,
		"forecast":    c.Pipeline.Forecast.Lookback,
		"calibration": c.Pipeline.Calibration.Lookback,
	} {
		if lb.MaxAge < 0 {
			return fmt.Errorf("pipeline.%s.lookback.max_age cannot be negative", name)
		}
	}
	return nil
}
