// Package config loads runtime settings for the moderation service and holds
// the moderation tunables (thresholds, weights, priorities).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. MODERATION_DATABASE_DSN.
const EnvPrefix = "MODERATION"

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ModerationConfig struct {
	FlagThreshold    float64       `mapstructure:"flag_threshold"`
	RemoveThreshold  float64       `mapstructure:"remove_threshold"`
	ReportRateLimit  int           `mapstructure:"report_rate_limit"`
	ReportRateWindow time.Duration `mapstructure:"report_rate_window"`
}

type AnalyzerConfig struct {
	// URL of the remote scoring service. Empty selects the local keyword analyzer.
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
	// MaxPriority is the least urgent queue priority that still triggers an alert.
	MaxPriority int `mapstructure:"max_priority"`
	// Language of the alert texts.
	Language string `mapstructure:"language"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// Config is the full service configuration.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Log        LogConfig        `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.dsn", "host=localhost user=user password=password dbname=familyeats port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "familyeats-identity")
	v.SetDefault("auth.token_ttl", 72*time.Hour)
	v.SetDefault("moderation.flag_threshold", DefaultFlagThreshold)
	v.SetDefault("moderation.remove_threshold", DefaultRemoveThreshold)
	v.SetDefault("moderation.report_rate_limit", DefaultReportRateLimit)
	v.SetDefault("moderation.report_rate_window", DefaultReportRateWindow)
	v.SetDefault("analyzer.url", "")
	v.SetDefault("analyzer.timeout", 10*time.Second)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.max_priority", 2)
	v.SetDefault("telegram.language", "en")
	v.SetDefault("log.debug", false)
}

// Load reads .env (if present), then the optional config file, then
// MODERATION_* environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		dir, file := filepath.Split(path)
		ext := filepath.Ext(file)
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(file, ext))
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() []error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	m := c.Moderation
	if m.FlagThreshold <= 0 || m.FlagThreshold >= 1 {
		errs = append(errs, fmt.Errorf("moderation.flag_threshold must be in (0,1), got %v", m.FlagThreshold))
	}
	if m.RemoveThreshold <= 0 || m.RemoveThreshold > 1 {
		errs = append(errs, fmt.Errorf("moderation.remove_threshold must be in (0,1], got %v", m.RemoveThreshold))
	}
	if m.FlagThreshold >= m.RemoveThreshold {
		errs = append(errs, errors.New("moderation.flag_threshold must be below moderation.remove_threshold"))
	}
	if m.ReportRateLimit < 0 {
		errs = append(errs, errors.New("moderation.report_rate_limit must not be negative"))
	}
	if c.Telegram.Token != "" && c.Telegram.AdminChatID == 0 {
		errs = append(errs, errors.New("telegram.admin_chat_id is required when telegram.token is set"))
	}
	return errs
}
