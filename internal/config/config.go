package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ConfigurationError reports missing or malformed startup configuration.
// The process must not start serving when Load returns one.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

type Config struct {
	HTTPAddr string `env:"AUTH_HTTP_ADDR" envDefault:":8080"`

	DatabaseURL    string        `env:"DATABASE_URL,required,notEmpty"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"pgx"`
	AutoMigrate    bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	QueryTimeout   time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	PasswordMemoryKiB  uint32 `env:"PASSWORD_HASH_MEMORY_KIB" envDefault:"65536"`
	PasswordIterations uint32 `env:"PASSWORD_HASH_ITERATIONS" envDefault:"1"`
	PasswordThreads    uint8  `env:"PASSWORD_HASH_THREADS" envDefault:"4"`

	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`

	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaUserTopic string   `env:"KAFKA_USER_TOPIC" envDefault:"user_events"`

	ESURL       string `env:"ES_URL"`
	ESUser      string `env:"ES_USER"`
	ESPassword  string `env:"ES_PASSWORD"`
	ESAuthIndex string `env:"ES_AUTH_INDEX" envDefault:"auth_events"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_not_loaded", "error", err)
	}
	return Parse(env.ToMap(os.Environ()))
}

// Parse builds a Config from the given variables only.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "pgx", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	if c.PasswordMemoryKiB == 0 || c.PasswordIterations == 0 || c.PasswordThreads == 0 {
		return errors.New("password hash parameters must be positive")
	}
	return nil
}
