package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path   string       `yaml:"path"`
		Backup BackupConfig `yaml:"backup"`
	} `yaml:"database"`

	Redis struct {
		Address          string `yaml:"address"`
		Password         string `yaml:"password"`
		DB               int    `yaml:"db"`
		PolicyTTLSeconds int    `yaml:"policy_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Notify struct {
		Enabled       bool    `yaml:"enabled"`
		Timezone      string  `yaml:"timezone"`
		DailyHour     int     `yaml:"daily_hour"`
		HoursBefore   int     `yaml:"hours_before"`
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
		TelegramToken string  `yaml:"telegram_token"`
		StaffChatID   int64   `yaml:"staff_chat_id"`
	} `yaml:"notify"`

	Audit struct {
		ExportDir string `yaml:"export_dir"`
	} `yaml:"audit"`
}

// BackupConfig controls periodic copies of the SQLite file.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
}

// Interval returns the backup period, defaulting to daily.
func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/rezerv.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}

func (c *Config) PolicyCacheTTL() time.Duration {
	if c.Redis.PolicyTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.PolicyTTLSeconds) * time.Second
}

func (c *Config) NotifyWindow() time.Duration {
	if c.Notify.HoursBefore <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Notify.HoursBefore) * time.Hour
}
