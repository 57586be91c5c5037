package config

import (
	"fmt"
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
		Path string `yaml:"path"`
	} `yaml:"database"`

	Holidays struct {
		Path string `yaml:"path"`
	} `yaml:"holidays"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		CutoffHour        int  `yaml:"cutoff_hour"`
		SaturdayOpenHour  int  `yaml:"saturday_open_hour"`
		SaturdayCloseHour int  `yaml:"saturday_close_hour"`
		EnforceGrid       bool `yaml:"enforce_grid"`
	} `yaml:"booking"`

	// TimeGrid maps a weekday label to its bookable class times, in the
	// order they are offered to students.
	TimeGrid map[string][]string `yaml:"time_grid"`

	Audit struct {
		Enabled       bool `yaml:"enabled"`
		RetentionDays int  `yaml:"retention_days"`
		ExportOnStart bool `yaml:"export_on_start"`
	} `yaml:"audit"`

	RateLimit struct {
		PerMinute int `yaml:"per_minute"`
		Burst     int `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// DefaultTimeGrid mirrors the academy's published weekly class schedule.
// Sundays carry no classes and are absent on purpose.
func DefaultTimeGrid() map[string][]string {
	return map[string][]string{
		"Segunda": {"08:30", "09:30", "16:00", "17:00", "18:00", "19:00", "20:00", "21:00"},
		"Terça":   {"09:30", "16:00", "17:00", "18:00", "19:00", "20:00", "21:00"},
		"Quarta":  {"09:30", "16:00", "17:00", "18:00", "19:00", "20:00", "21:00"},
		"Quinta":  {"08:30", "09:30", "16:00", "17:00", "18:00", "19:00", "20:00"},
		"Sexta":   {"09:30", "17:00", "18:00", "19:00"},
		"Sábado":  {"09:00", "10:00", "11:00", "12:00"},
	}
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

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/techgym.db"
	}
	if c.Holidays.Path == "" {
		c.Holidays.Path = "config/holidays.json"
	}
	if c.Booking.CutoffHour == 0 {
		c.Booking.CutoffHour = 14
	}
	if c.Booking.SaturdayOpenHour == 0 {
		c.Booking.SaturdayOpenHour = 16
	}
	if c.Booking.SaturdayCloseHour == 0 {
		c.Booking.SaturdayCloseHour = 20
	}
	if len(c.TimeGrid) == 0 {
		c.TimeGrid = DefaultTimeGrid()
	}
	if c.Audit.RetentionDays <= 0 {
		c.Audit.RetentionDays = 365
	}
	if c.RateLimit.PerMinute <= 0 {
		c.RateLimit.PerMinute = 60
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks rule constants and the time grid for obvious mistakes.
func (c *Config) Validate() error {
	if c.Booking.CutoffHour < 0 || c.Booking.CutoffHour > 23 {
		return fmt.Errorf("booking.cutoff_hour out of range: %d", c.Booking.CutoffHour)
	}
	if c.Booking.SaturdayOpenHour >= c.Booking.SaturdayCloseHour {
		return fmt.Errorf("booking: saturday_open_hour %d must be before saturday_close_hour %d",
			c.Booking.SaturdayOpenHour, c.Booking.SaturdayCloseHour)
	}
	for day, times := range c.TimeGrid {
		for _, tstr := range times {
			if _, err := time.Parse("15:04", tstr); err != nil {
				return fmt.Errorf("time_grid[%s]: invalid time %q, expected HH:MM", day, tstr)
			}
		}
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
