package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"health_records.db"`

	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MetricsPath        string   `env:"PROMETHEUS_METRICS_PATH" envDefault:"/metrics"`
	MaxUploadMB        int64    `env:"MAX_UPLOAD_MB" envDefault:"20"`

	StagingTTL        time.Duration `env:"STAGING_TTL" envDefault:"24h"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	ImportAliasesFile string        `env:"IMPORT_ALIASES_FILE"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	TelegramToken        string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramDebug        bool    `env:"TELEGRAM_DEBUG" envDefault:"false"`
	TelegramAdminChatIDs []int64 `env:"TELEGRAM_ADMIN_CHAT_IDS" envSeparator:","`
}

var instance *Config
var once sync.Once

// GetConfig loads .env (when present) and the environment once per process.
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load(".env")
		if err != nil {
			logrus.Fatalf("error loading configuration: %s", err.Error())
		}
		instance = cfg
	})

	return instance
}

// Load reads the given dotenv files, skipping missing ones, then binds the
// environment. Variables already set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("could not get db url")
	}
	if c.StagingTTL <= 0 {
		return errors.New("STAGING_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("PROMETHEUS_METRICS_PATH must start with '/', got %q", c.MetricsPath)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func (c *Config) LogrusLevel() logrus.Level {
	switch strings.ToLower(c.LogLevel) {
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger builds the process logger shared by repositories and services.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogrusLevel())
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
