package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Seed       SeedConfig
	Simulator  SimulatorConfig
	Completion CompletionConfig
	Tail       TailConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// StorageConfig selects the storage backend. Both keep data in memory only.
type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"memory"` // memory or sqlite3
	DSN    string `env:"STORAGE_DSN" envDefault:"file:sandbox?mode=memory&cache=shared&_foreign_keys=on"`
}

// SeedConfig controls the synthetic data generated at startup.
type SeedConfig struct {
	Environments int   `env:"SEED_ENVIRONMENTS" envDefault:"3"`
	Random       int64 `env:"SEED_RANDOM" envDefault:"0"` // 0 picks a time-based seed
}

// SimulatorConfig holds request simulator configuration.
type SimulatorConfig struct {
	MinLatency time.Duration `env:"SIM_MIN_LATENCY" envDefault:"100ms"`
	MaxLatency time.Duration `env:"SIM_MAX_LATENCY" envDefault:"1500ms"`
	Delay      bool          `env:"SIM_DELAY" envDefault:"true"`
}

// CompletionConfig holds the text-completion backend configuration.
type CompletionConfig struct {
	BaseURL  string        `env:"COMPLETION_BASE_URL"`
	APIKey   string        `env:"COMPLETION_API_KEY"`
	Model    string        `env:"COMPLETION_MODEL" envDefault:"gpt-4o-mini"`
	Timeout  time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`
	FileShim string        `env:"COMPLETION_FILE_SHIM"` // Path to a canned response (disables real API)
}

// TailConfig holds log-tail refresh configuration.
type TailConfig struct {
	Debounce time.Duration `env:"TAIL_DEBOUNCE" envDefault:"2s"`
	Auto     bool          `env:"TAIL_AUTO" envDefault:"true"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
}

// Load loads configuration from environment variables, after reading an
// optional .env file from the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Storage); err != nil {
		return nil, fmt.Errorf("parsing storage config: %w", err)
	}
	if err := env.Parse(&cfg.Seed); err != nil {
		return nil, fmt.Errorf("parsing seed config: %w", err)
	}
	if err := env.Parse(&cfg.Simulator); err != nil {
		return nil, fmt.Errorf("parsing simulator config: %w", err)
	}
	if err := env.Parse(&cfg.Completion); err != nil {
		return nil, fmt.Errorf("parsing completion config: %w", err)
	}
	if err := env.Parse(&cfg.Tail); err != nil {
		return nil, fmt.Errorf("parsing tail config: %w", err)
	}
	if err := env.Parse(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("parsing logging config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite3":
		if c.Storage.DSN == "" {
			return fmt.Errorf("STORAGE_DSN is required when STORAGE_DRIVER is sqlite3")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be memory or sqlite3, got %q", c.Storage.Driver)
	}

	if c.Seed.Environments < 0 {
		return fmt.Errorf("SEED_ENVIRONMENTS must not be negative")
	}

	if c.Simulator.MinLatency < 0 || c.Simulator.MaxLatency < 0 {
		return fmt.Errorf("SIM_MIN_LATENCY and SIM_MAX_LATENCY must not be negative")
	}
	if c.Simulator.MaxLatency < c.Simulator.MinLatency {
		return fmt.Errorf("SIM_MAX_LATENCY (%s) must not be less than SIM_MIN_LATENCY (%s)",
			c.Simulator.MaxLatency, c.Simulator.MinLatency)
	}

	// A real completion backend needs credentials; the file shim does not.
	if c.Completion.FileShim == "" && c.Completion.BaseURL != "" {
		if c.Completion.APIKey == "" {
			return fmt.Errorf("COMPLETION_API_KEY is required when COMPLETION_BASE_URL is set")
		}
		if c.Completion.Timeout <= 0 {
			return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
		}
	}

	if c.Tail.Debounce < 0 {
		return fmt.Errorf("TAIL_DEBOUNCE must not be negative")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// UseFileShim returns true if the completion file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.Completion.FileShim != ""
}

// CompletionEnabled reports whether any completion backend is configured.
func (c *Config) CompletionEnabled() bool {
	return c.UseFileShim() || c.Completion.BaseURL != ""
}
