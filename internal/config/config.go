package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/aretw0/waypoint/pkg/adapters/smtp"
)

// EnvPrefix prefixes every environment override, e.g. WAYPOINT_LOG_LEVEL.
const EnvPrefix = "WAYPOINT"

// Backend names accepted by the collaborator sections.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendNone     = "none"
	BackendOutbox   = "outbox"
	BackendSMTP     = "smtp"
)

// Config holds the configuration of the CLI and its servers.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Engine struct {
		MaxSteps int           `mapstructure:"max_steps"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"engine"`
	Directory struct {
		Backend string `mapstructure:"backend"`
		Seed    bool   `mapstructure:"seed"`
	} `mapstructure:"directory"`
	Notifier struct {
		Backend string      `mapstructure:"backend"`
		SMTP    smtp.Config `mapstructure:"smtp"`
	} `mapstructure:"notifier"`
	Checkpoint struct {
		Backend       string        `mapstructure:"backend"`
		Path          string        `mapstructure:"path"`
		TTL           time.Duration `mapstructure:"ttl"`
		EncryptionKey string        `mapstructure:"encryption_key"`
		FallbackKeys  []string      `mapstructure:"fallback_keys"`
		PIIPatterns   []string      `mapstructure:"pii_patterns"`
	} `mapstructure:"checkpoint"`
	Redis struct {
		Address  string        `mapstructure:"address"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		Prefix   string        `mapstructure:"prefix"`
		Lock     bool          `mapstructure:"lock"`
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"redis"`
	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`
	HTTP struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"http"`
}

// defaults lists every key so environment overrides reach keys absent from the file.
var defaults = map[string]any{
	"log.level":                 "info",
	"log.format":                "text",
	"engine.max_steps":          25,
	"engine.timeout":            time.Duration(0),
	"directory.backend":         BackendMemory,
	"directory.seed":            true,
	"notifier.backend":          BackendOutbox,
	"notifier.smtp.host":        "smtp.gmail.com",
	"notifier.smtp.port":        587,
	"notifier.smtp.sender":      "",
	"notifier.smtp.password":    "",
	"checkpoint.backend":        BackendFile,
	"checkpoint.path":           ".waypoint/runs",
	"checkpoint.ttl":            time.Duration(0),
	"checkpoint.encryption_key": "",
	"checkpoint.fallback_keys":  []string{},
	"checkpoint.pii_patterns":   []string{},
	"redis.address":             "localhost:6379",
	"redis.password":            "",
	"redis.db":                  0,
	"redis.prefix":              "waypoint:",
	"redis.lock":                false,
	"redis.lock_ttl":            30 * time.Second,
	"postgres.dsn":              "postgres://localhost:5432/waypoint?sslmode=disable",
	"http.address":              ":8080",
}

// Load reads path, or ./waypoint.yaml when path is empty and the file
// exists, then applies WAYPOINT_* environment overrides. EMAIL_SENDER and
// EMAIL_PASSWORD also set the SMTP credentials.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notifier.smtp.sender", EnvPrefix+"_NOTIFIER_SMTP_SENDER", "EMAIL_SENDER"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("notifier.smtp.password", EnvPrefix+"_NOTIFIER_SMTP_PASSWORD", "EMAIL_PASSWORD"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("waypoint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends.
func (c *Config) Validate() error {
	var problems []string
	check := func(section, got string, allowed ...string) {
		if !slices.Contains(allowed, got) {
			problems = append(problems, fmt.Sprintf("%s.backend %q is not one of %s", section, got, strings.Join(allowed, ", ")))
		}
	}
	check("directory", c.Directory.Backend, BackendMemory, BackendRedis, BackendPostgres)
	check("notifier", c.Notifier.Backend, BackendOutbox, BackendSMTP)
	check("checkpoint", c.Checkpoint.Backend, BackendNone, BackendMemory, BackendFile, BackendRedis)
	if c.Engine.MaxSteps < 0 {
		problems = append(problems, "engine.max_steps must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
