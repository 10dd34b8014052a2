// Package config loads service configuration from defaults, an optional
// config file and FRONTIER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. FRONTIER_REDIS_HOST.
const EnvPrefix = "FRONTIER"

type Redis struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Claim struct {
	MaxScans int           `mapstructure:"max_scans"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

type Worker struct {
	ID             string        `mapstructure:"id"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Concurrency    int           `mapstructure:"concurrency"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type Kafka struct {
	Broker      string `mapstructure:"broker"`
	ClaimsTopic string `mapstructure:"claims_topic"`
	ClaimsGroup string `mapstructure:"claims_group"`
}

type GraphWriter struct {
	Concurrency int           `mapstructure:"concurrency"`
	RetryMax    int           `mapstructure:"retry_max"`
	RetryBase   time.Duration `mapstructure:"retry_base"`
}

type Neo4j struct {
	URI      string `mapstructure:"uri"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type API struct {
	Addr string `mapstructure:"addr"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Development bool `mapstructure:"development"`
}

// Config is the full service configuration.
type Config struct {
	Redis    Redis       `mapstructure:"redis"`
	Claim    Claim       `mapstructure:"claim"`
	Worker   Worker      `mapstructure:"worker"`
	Kafka    Kafka       `mapstructure:"kafka"`
	Neo4j    Neo4j       `mapstructure:"neo4j"`
	Graph    GraphWriter `mapstructure:"graph_writer"`
	API      API         `mapstructure:"api"`
	Metrics  Metrics     `mapstructure:"metrics"`
	Log      Log         `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// One pass over the snapshot per claim call unless configured otherwise.
	v.SetDefault("claim.max_scans", 1)
	v.SetDefault("claim.backoff", "200ms")

	v.SetDefault("worker.id", "")
	v.SetDefault("worker.poll_interval", "1s")
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.publish_timeout", "10s")

	v.SetDefault("kafka.broker", "localhost:9092")
	v.SetDefault("kafka.claims_topic", "relentless.frontier.claims")
	v.SetDefault("kafka.claims_group", "relentless-graph-claims")

	v.SetDefault("graph_writer.concurrency", 4)
	v.SetDefault("graph_writer.retry_max", 3)
	v.SetDefault("graph_writer.retry_base", "200ms")

	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "neo4j")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.development", false)
}

// Load reads configuration. path may be empty, in which case config.yaml is
// looked up in the working directory and /etc/relentless-frontier; a missing
// file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/relentless-frontier/")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Worker.ID == "" {
		cfg.Worker.ID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	if c.Redis.Host == "" {
		return errors.New("config: redis.host is required")
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("config: redis.port %d out of range", c.Redis.Port)
	}
	if c.Claim.MaxScans < 1 {
		return fmt.Errorf("config: claim.max_scans must be >= 1, got %d", c.Claim.MaxScans)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}
	if c.Claim.Backoff < 0 {
		return errors.New("config: claim.backoff must not be negative")
	}
	return nil
}
