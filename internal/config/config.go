package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Jobs      JobsConfig      `yaml:"jobs" envconfig:"JOBS"`
	Engine    EngineConfig    `yaml:"engine" envconfig:"ENGINE"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins    []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS        bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	MinPasswordLength int             `yaml:"min_password_length" envconfig:"MIN_PASSWORD_LENGTH"`
	APITokenHash      string          `yaml:"api_token_hash" envconfig:"API_TOKEN_HASH"`
	RateLimit         RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// AuthEnabled reports whether mutating deal routes require a bearer token.
func (s SecurityConfig) AuthEnabled() bool {
	return s.APITokenHash != ""
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// DatabaseConfig contains deal store configuration. An empty DSN runs the
// application without persistence.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"DSN"`
	MaxConns        int           `yaml:"max_conns" envconfig:"MAX_CONNS"`
	MinConns        int           `yaml:"min_conns" envconfig:"MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" envconfig:"MAX_CONN_LIFETIME"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
}

// Enabled reports whether a deal store should be connected.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// JobsConfig contains async job queue configuration
type JobsConfig struct {
	Workers   int           `yaml:"workers" envconfig:"WORKERS"`
	QueueSize int           `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	Retention time.Duration `yaml:"retention" envconfig:"RETENTION"`
}

// EngineConfig contains underwriting engine configuration
type EngineConfig struct {
	CalculationTimeout  time.Duration `yaml:"calculation_timeout" envconfig:"CALCULATION_TIMEOUT"`
	SensitivityParallel int           `yaml:"sensitivity_parallel" envconfig:"SENSITIVITY_PARALLEL"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Load loads configuration from defaults, an optional YAML file, and
// environment variables, in rising order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if err := applyFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("DP", cfg); err != nil {
		return nil, fmt.Errorf("config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyFile overlays YAML file values onto cfg
func applyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// configFilePath returns the first config file found in the common
// locations, or empty when running on env vars alone
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// EnsureDirs creates the data, uploads, and logs directories if missing.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.Paths.DataDir, c.UploadsDir(), c.Paths.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// UploadsDir returns the directory rent-roll uploads are staged in.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Security.MinPasswordLength < 8 {
		return fmt.Errorf("minimum password length must be at least 8, got %d", c.Security.MinPasswordLength)
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive")
		}
		if c.Security.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	if c.Database.Enabled() {
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("database max conns must be at least 1")
		}
		if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("database min conns must be between 0 and max conns")
		}
	}

	if c.Jobs.Workers < 1 {
		return fmt.Errorf("job workers must be at least 1")
	}
	if c.Jobs.QueueSize < 1 {
		return fmt.Errorf("job queue size must be at least 1")
	}
	if c.Jobs.Timeout <= 0 {
		return fmt.Errorf("job timeout must be positive")
	}

	if c.Engine.CalculationTimeout <= 0 {
		return fmt.Errorf("engine calculation timeout must be positive")
	}
	if c.Engine.SensitivityParallel < 1 {
		return fmt.Errorf("engine sensitivity parallelism must be at least 1")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "app.log")
	}

	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultServerPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins:    []string{"http://localhost:8080"},
			EnableCORS:        true,
			MinPasswordLength: DefaultMinPasswordLength,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    filepath.Join(DefaultLogsDir, "app.log"),
			Development: false,
		},
		Database: DatabaseConfig{
			MaxConns:        8,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Jobs: JobsConfig{
			Workers:   DefaultJobWorkers,
			QueueSize: DefaultJobQueueSize,
			Timeout:   DefaultJobTimeout,
			Retention: DefaultJobRetention,
		},
		Engine: EngineConfig{
			CalculationTimeout:  DefaultCalculationTimeout,
			SensitivityParallel: DefaultSensitivityParallel,
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
	}
}
