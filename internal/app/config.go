package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event publisher drivers.
const (
	EventsNone  = "none"
	EventsAMQP  = "amqp"
	EventsKafka = "kafka"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (LEMON_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (LEMON_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Storage     StorageConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	Events      EventsConfig
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver    string   `default:"postgres" usage:"Storage driver: postgres or memory"`
	SeedFiles []string `usage:"Seed files applied on startup (plain or .gz JSON)" flag:"seed-files"`
}

// AuthConfig controls bearer token issuing.
type AuthConfig struct {
	Secret string        `usage:"HMAC secret for signing tokens (LEMON_AUTH_SECRET)" flag:"auth-secret"`
	TTL    time.Duration `default:"24h" usage:"Token lifetime" flag:"auth-ttl"`
	Issuer string        `default:"littlelemon" usage:"Token issuer" flag:"auth-issuer"`
}

// RateLimitConfig controls the per-client sliding window throttles.
type RateLimitConfig struct {
	AnonMax    int           `default:"20" usage:"Max anonymous requests per window" flag:"anon-max"`
	AnonWindow time.Duration `default:"1m" usage:"Anonymous throttle window" flag:"anon-window"`
	UserMax    int           `default:"60" usage:"Max authenticated requests per window" flag:"user-max"`
	UserWindow time.Duration `default:"1m" usage:"Authenticated throttle window" flag:"user-window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// EventsConfig selects where order lifecycle events are published.
type EventsConfig struct {
	Driver       string   `default:"none" usage:"Event publisher: none, amqp or kafka"`
	AMQPURL      string   `usage:"RabbitMQ URL" flag:"amqp-url"`
	Exchange     string   `default:"orders_topic" usage:"RabbitMQ topic exchange"`
	KafkaBrokers []string `usage:"Kafka broker addresses" flag:"kafka-brokers"`
	KafkaTopic   string   `default:"littlelemon.orders" usage:"Kafka topic" flag:"kafka-topic"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LEMON",
		Files:     []string{"config.yaml", "/etc/littlelemon/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option combinations that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("token secret is required: set LEMON_AUTH_SECRET")
	}
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set LEMON_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Events.Driver {
	case "", EventsNone:
	case EventsAMQP:
		if c.Events.AMQPURL == "" {
			return errors.New("amqp events need a broker URL")
		}
	case EventsKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("kafka events need at least one broker")
		}
	default:
		return errors.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.RateLimit.AnonMax <= 0 || c.RateLimit.UserMax <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.RateLimit.AnonWindow <= 0 || c.RateLimit.UserWindow <= 0 {
		return errors.New("rate limit windows must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's LEMON_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
