package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Logging     struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9108"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Models struct {
		Dir           string        `yaml:"dir" default:"models" validate:"required"`
		Horizons      []int         `yaml:"horizons" default:"[1,5,10,20]" validate:"min=1,dive,gt=0"`
		Trials        int           `yaml:"trials" default:"50" validate:"gt=0"`
		Folds         int           `yaml:"folds" default:"5" validate:"gte=2"`
		Workers       int           `yaml:"workers" default:"4" validate:"gt=0"`
		SearchTimeout time.Duration `yaml:"search_timeout" default:"10m"`
		MaxAgeDays    int           `yaml:"max_age_days" default:"7" validate:"gt=0"`
		Seed          int64         `yaml:"seed" default:"42"`
	} `yaml:"models"`
	Reporting struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none kafka clickhouse"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"stockcast.training"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host             string        `yaml:"host"`
			Port             int           `yaml:"port" default:"9000"`
			Database         string        `yaml:"database" default:"stockcast"`
			User             string        `yaml:"user" default:"default"`
			Password         string        `yaml:"password"`
			DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		} `yaml:"clickhouse"`
	} `yaml:"reporting"`
	Cache struct {
		MemorySize int `yaml:"memory_size" default:"256"`
		Redis      struct {
			Enabled  bool          `yaml:"enabled"`
			Addr     string        `yaml:"addr" default:"localhost:6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			TTL      time.Duration `yaml:"ttl" default:"24h"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Data struct {
		Dir           string        `yaml:"dir" default:"data"`
		Symbols       []string      `yaml:"symbols"`
		CheckInterval time.Duration `yaml:"check_interval" default:"1h"`
	} `yaml:"data"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies struct-tag defaults and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("STOCKCAST_MODEL_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("STOCKCAST_SYMBOLS"); v != "" {
		c.Data.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("STOCKCAST_REPORTING"); v != "" {
		c.Reporting.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Reporting.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Reporting.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("STOCKCAST_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("STOCKCAST_TRIALS: %w", err)
		}
		c.Models.Trials = n
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks field constraints plus the cross-field rules the tag
// language cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Reporting.Backend == "kafka" && len(c.Reporting.Kafka.Brokers) == 0 {
		return fmt.Errorf("reporting.kafka.brokers cannot be empty with the kafka backend")
	}
	if c.Reporting.Backend == "clickhouse" && c.Reporting.ClickHouse.Host == "" {
		return fmt.Errorf("reporting.clickhouse.host is required with the clickhouse backend")
	}
	seen := make(map[int]bool, len(c.Models.Horizons))
	for _, h := range c.Models.Horizons {
		if seen[h] {
			return fmt.Errorf("duplicate horizon %d", h)
		}
		seen[h] = true
	}
	return nil
}
