package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. Empty values count as unset.
const (
	EnvAPIBase            = "GENERECT_API_BASE"
	EnvAPIKey             = "GENERECT_API_KEY"
	EnvTimeoutMS          = "GENERECT_TIMEOUT_MS"
	EnvPort               = "MCP_PORT"
	EnvDebug              = "MCP_DEBUG"
	EnvSessionIdleTimeout = "MCP_SESSION_IDLE_TIMEOUT"
	EnvLogFormat          = "MCP_LOG_FORMAT"
	EnvLogLevel           = "MCP_LOG_LEVEL"
)

// Defaults.
const (
	DefaultBaseURL            = "https://api.generect.com"
	DefaultTimeout            = 120 * time.Second
	DefaultPort               = 3000
	DefaultPath               = "/mcp"
	DefaultSessionIdleTimeout = 30 * time.Minute
)

// Config is the process configuration of the Generect MCP server.
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// APIConfig points at the Generect API.
type APIConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	// Key is the default credential, used when a client sends none.
	Key     string        `yaml:"key" toml:"key"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// ServerConfig holds the HTTP gateway settings.
type ServerConfig struct {
	Port               int           `yaml:"port" toml:"port"`
	Path               string        `yaml:"path" toml:"path"`
	SessionIdleTimeout time.Duration `yaml:"-" toml:"-"`
	AllowedOrigins     []string      `yaml:"allowed_origins" toml:"allowed_origins"`

	SessionIdleTimeoutRaw string `yaml:"session_idle_timeout" toml:"session_idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Debug  bool   `yaml:"debug" toml:"debug"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Server: ServerConfig{
			Port:               DefaultPort,
			Path:               DefaultPath,
			SessionIdleTimeout: DefaultSessionIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, the optional file at path and the
// environment, in that order. ${VAR} references in the file are expanded
// through env. A nil env reads the process environment.
func Load(path string, env LookupFunc) (*Config, error) {
	if env == nil {
		env = os.LookupEnv
	}
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path, env); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, env LookupFunc) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data), env)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}

	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with values from env. Unset
// variables expand to the empty string.
func expandEnvVars(s string, env LookupFunc) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		value, _ := env(envRef.FindStringSubmatch(match)[1])
		return value
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.Server.SessionIdleTimeoutRaw != "" {
		cfg.Server.SessionIdleTimeout, err = time.ParseDuration(cfg.Server.SessionIdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing server.session_idle_timeout %q: %w", cfg.Server.SessionIdleTimeoutRaw, err)
		}
	}

	return nil
}

func (c *Config) applyEnv(env LookupFunc) error {
	get := func(key string) (string, bool) {
		value, ok := env(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get(EnvAPIBase); ok {
		c.API.BaseURL = v
	}
	if v, ok := get(EnvAPIKey); ok {
		c.API.Key = v
	}
	if v, ok := get(EnvTimeoutMS); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", EnvTimeoutMS, v, err)
		}
		c.API.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	if v, ok := get(EnvDebug); ok {
		c.Logging.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := get(EnvSessionIdleTimeout); ok {
		d, err := parseIdleTimeout(v)
		if err != nil {
			return fmt.Errorf("%s %q: %w", EnvSessionIdleTimeout, v, err)
		}
		c.Server.SessionIdleTimeout = d
	}
	if v, ok := get(EnvLogFormat); ok {
		c.Logging.Format = strings.ToLower(v)
	}
	if v, ok := get(EnvLogLevel); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// parseIdleTimeout accepts Go durations and a bare "0" to disable eviction.
func parseIdleTimeout(v string) (time.Duration, error) {
	if v == "0" {
		return 0, nil
	}
	return time.ParseDuration(v)
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url must include a host")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /")
	}
	if c.Server.SessionIdleTimeout < 0 {
		return fmt.Errorf("server.session_idle_timeout must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if _, ok := parseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// Addr is the listen address of the HTTP gateway.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
