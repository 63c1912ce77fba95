package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 3000
	DefaultEnv          = EnvDevelopment
	DefaultDataPath     = "data.json"
	DefaultSaveDebounce = 200 * time.Millisecond
	DefaultSendBuffer   = 16
	DefaultLogLevel     = "info"
	DefaultNATSSubject  = "lapboard.state"
)

// Run modes. The mode only selects the log format and the startup banner.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the lapboard server configuration parsed from config.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	WS      WSConfig      `yaml:"ws"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 3000).
	HTTPPort int `yaml:"http_port"`

	// Env is development or production.
	Env string `yaml:"env"`

	// PublicDir is an optional directory of static files served at /.
	PublicDir string `yaml:"public_dir"`

	// CORSOrigins lists the allowed origins. Default: ["*"].
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig controls the data file.
type DataConfig struct {
	// Path is the JSON data file (default data.json).
	Path string `yaml:"path"`

	// SaveDebounce is the quiet period before a write. Default: 200ms.
	SaveDebounce time.Duration `yaml:"save_debounce"`
}

// WSConfig controls the WebSocket hub.
type WSConfig struct {
	// SendBuffer is the per-client queue depth; a client whose queue is full
	// is disconnected.
	SendBuffer int `yaml:"send_buffer"`
}

// LogConfig controls logging. Level is reloaded by Watch.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NATSConfig configures the optional snapshot mirror. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return c.Server.Env == EnvProduction
}

// SlogLevel returns the configured level as a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	lvl, _ := parseLevel(l.Level)
	return lvl
}

// Load reads and parses the config file at path. An empty path returns the
// defaults. Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    DefaultHTTPPort,
			Env:         DefaultEnv,
			CORSOrigins: []string{"*"},
		},
		Data: DataConfig{
			Path:         DefaultDataPath,
			SaveDebounce: DefaultSaveDebounce,
		},
		WS:      WSConfig{SendBuffer: DefaultSendBuffer},
		Log:     LogConfig{Level: DefaultLogLevel},
		Metrics: MetricsConfig{Enabled: true},
		NATS:    NATSConfig{Subject: DefaultNATSSubject},
	}
}

// Validate checks structural constraints. It is exported so the binary can
// re-check the config after applying flag and environment overrides.
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("server.env %q unknown: want development|production", cfg.Server.Env)
	}
	if strings.TrimSpace(cfg.Data.Path) == "" {
		return fmt.Errorf("data.path must not be empty")
	}
	if cfg.Data.SaveDebounce < 0 {
		return fmt.Errorf("data.save_debounce must not be negative")
	}
	if cfg.WS.SendBuffer <= 0 {
		return fmt.Errorf("ws.send_buffer must be positive")
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.NATS.URL != "" && cfg.NATS.Subject == "" {
		return fmt.Errorf("nats.subject must be set when nats.url is")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q unknown: want debug|info|warn|error", s)
	}
	return lvl, nil
}
