package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageBolt   = "bolt"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	EventsLog   = "log"
	EventsKafka = "kafka"
)

type Config struct {
	APIURL         string        `yaml:"api_url"`
	PaymentURL     string        `yaml:"payment_url"`
	PaymentKey     string        `yaml:"payment_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Breaker        Breaker       `yaml:"breaker"`
	Storage        Storage       `yaml:"storage"`
	Events         Events        `yaml:"events"`
	Log            Log           `yaml:"log"`
}

type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

type Storage struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	Namespace  string `yaml:"namespace"`
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
	SQLitePath string `yaml:"sqlite_path"`
}

type Events struct {
	Driver  string   `yaml:"driver"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		APIURL:         "http://localhost:8080",
		PaymentURL:     "http://localhost:8090",
		RequestTimeout: 10 * time.Second,
		Breaker: Breaker{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
		Storage: Storage{
			Driver:     StorageBolt,
			Path:       "storefront.db",
			RedisAddr:  "localhost:6379",
			Namespace:  "storefront",
			MongoURI:   "mongodb://localhost:27017",
			MongoDB:    "storefront",
			SQLitePath: "storefront.sqlite",
		},
		Events: Events{
			Driver: EventsLog,
			Topic:  "checkout-events",
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top of the
// defaults, then applies STOREFRONT_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.APIURL = getEnv("STOREFRONT_API_URL", cfg.APIURL)
	cfg.PaymentURL = getEnv("STOREFRONT_PAYMENT_URL", cfg.PaymentURL)
	cfg.PaymentKey = getEnv("STOREFRONT_PAYMENT_KEY", cfg.PaymentKey)
	cfg.Storage.Driver = getEnv("STOREFRONT_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("STOREFRONT_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.RedisAddr = getEnv("STOREFRONT_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.MongoURI = getEnv("STOREFRONT_MONGO_URI", cfg.Storage.MongoURI)
	cfg.Storage.SQLitePath = getEnv("STOREFRONT_SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Events.Driver = getEnv("STOREFRONT_EVENTS_DRIVER", cfg.Events.Driver)
	cfg.Events.Topic = getEnv("STOREFRONT_EVENTS_TOPIC", cfg.Events.Topic)
	cfg.Log.Level = getEnv("STOREFRONT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("STOREFRONT_LOG_FORMAT", cfg.Log.Format)

	if brokers := getEnv("STOREFRONT_KAFKA_BROKERS", ""); brokers != "" {
		cfg.Events.Brokers = strings.Split(brokers, ",")
	}
	if timeout := getEnv("STOREFRONT_REQUEST_TIMEOUT", ""); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if db := getEnv("STOREFRONT_REDIS_DB", ""); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return fmt.Errorf("invalid STOREFRONT_REDIS_DB: %w", err)
		}
		cfg.Storage.RedisDB = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	switch c.Storage.Driver {
	case StorageBolt, StorageSQLite, StorageRedis, StorageMongo, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Events.Driver {
	case EventsLog:
	case EventsKafka:
		if len(c.Events.Brokers) == 0 {
			errs = append(errs, errors.New("kafka events need at least one broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events driver %q", c.Events.Driver))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
