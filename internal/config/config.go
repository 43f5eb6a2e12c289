package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Slack     SlackConfig     `yaml:"slack"`
	API       APIConfig       `yaml:"api"`
	Callback  CallbackConfig  `yaml:"callback"`
	Approvals ApprovalsConfig `yaml:"approvals"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	MetricsPort       int           `yaml:"metricsPort"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

type SlackConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BotToken       string `yaml:"botToken"`
	SigningSecret  string `yaml:"signingSecret"`
	DefaultChannel string `yaml:"defaultChannel"`

	// SkipVerification disables signature verification. Local development
	// only; the verifier logs loudly when this is set.
	SkipVerification bool `yaml:"skipVerification"`
}

type APIConfig struct {
	Token string `yaml:"token"`
}

type CallbackConfig struct {
	EdgeFunctionBaseURL string        `yaml:"edgeFunctionBaseURL"`
	ServiceToken        string        `yaml:"serviceToken"`
	Timeout             time.Duration `yaml:"timeout"`
}

type ApprovalsConfig struct {
	DefaultTTL time.Duration `yaml:"defaultTTL"`
	Sweep      SweepConfig   `yaml:"sweep"`
}

type SweepConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

type DatabaseConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MetricsPort:       9090,
			RequestsPerMinute: 120,
		},
		Slack: SlackConfig{
			Enabled: true,
		},
		Callback: CallbackConfig{
			Timeout: 10 * time.Second,
		},
		Approvals: ApprovalsConfig{
			DefaultTTL: 24 * time.Hour,
			Sweep: SweepConfig{
				Enabled:  false,
				Schedule: "*/15 * * * *",
			},
		},
		Database: DatabaseConfig{
			SQLite: SQLiteConfig{
				Path:              "/data/sunbeam-bot.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
