package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "taskflow.yml"

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config models taskflow.yml.
type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		BasePath     string        `yaml:"base_path"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		CORSOrigins  []string      `yaml:"cors_origins"`
		// MaxBodyBytes bounds import payloads.
		MaxBodyBytes int64 `yaml:"max_body_bytes"`
	} `yaml:"server"`
	Store struct {
		Driver  string `yaml:"driver"`
		DataDir string `yaml:"data_dir"`
		DSN     string `yaml:"dsn"`
	} `yaml:"store"`
	History struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"history"`
	Activity struct {
		// MaxEntries caps the document-backed log; SQL stores keep everything.
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"activity"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
		if c.Store.DataDir == "" {
			return fmt.Errorf("config.store.data_dir is required for driver %s", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("config.store.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("config.store.driver must be one of file, sqlite, postgres (got %q)", c.Store.Driver)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("config.history.capacity must be positive")
	}
	if c.Activity.MaxEntries < 0 {
		return fmt.Errorf("config.activity.max_entries must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config.log.format must be json or console")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("config.server.max_body_bytes must not be negative")
	}
	return nil
}

// Path returns the config file path inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName)
}

// Load reads and validates the config file in dir.
func Load(dir string) (*Config, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with tf config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() when the config file does not exist.
func LoadOptional(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses raw YAML on top of the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:3001
  base_path: /api
  read_timeout: 15s
  write_timeout: 30s
  max_body_bytes: 10485760
  cors_origins: ["*"]

store:
  # file keeps tasks.json, history.json and activity.json in data_dir.
  # sqlite keeps taskflow.db in data_dir; postgres uses dsn.
  driver: file
  data_dir: ./data
  dsn: ""

history:
  capacity: 50

activity:
  max_entries: 200

log:
  level: info
  format: json
`
