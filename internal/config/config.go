package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"lst-platform/pkg/database"
)

// Data source kinds for the snapshot loader.
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
	SourceSQL  = "sql"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Map      MapConfig
	Session  SessionConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig describes where per-day snapshots come from.
type DataConfig struct {
	Source          string
	Dir             string
	BaseURL         string
	Year            int
	Days            int
	LoadConcurrency int
	LoadTimeout     time.Duration
	OverlayPath     string
}

// MapConfig fixes canvas geometry and the colour domain.
type MapConfig struct {
	CanvasWidth  int
	CanvasHeight int
	CellSize     int
	ColorMinK    float64
	ColorMaxK    float64
	CacheSize    int
}

// SessionConfig controls probe session lifetime.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// DatabaseConfig configures the sample archive.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from environment variables, applying defaults where unset.
func LoadConfig() (*Config, error) {
	var errs []error
	p := &parser{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:            envOrDefault("HTTP_HOST", "0.0.0.0"),
			Port:            p.int("HTTP_PORT", 8080),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     p.duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			Source:          envOrDefault("DATA_SOURCE", SourceDir),
			Dir:             envOrDefault("DATA_DIR", "./lib"),
			BaseURL:         os.Getenv("DATA_BASE_URL"),
			Year:            p.int("DATA_YEAR", 2024),
			Days:            p.int("DATA_DAYS", 129),
			LoadConcurrency: p.int("LOAD_CONCURRENCY", 16),
			LoadTimeout:     p.duration("LOAD_TIMEOUT", 2*time.Minute),
			OverlayPath:     envOrDefault("OVERLAY_PATH", "./us_lower_48.geo.json"),
		},
		Map: MapConfig{
			CanvasWidth:  p.int("CANVAS_WIDTH", 960),
			CanvasHeight: p.int("CANVAS_HEIGHT", 448),
			CellSize:     p.int("CELL_SIZE", 8),
			ColorMinK:    p.float("COLOR_MIN_K", 250),
			ColorMaxK:    p.float("COLOR_MAX_K", 300),
			CacheSize:    p.int("RENDER_CACHE_SIZE", 256),
		},
		Session: SessionConfig{
			IdleTimeout:   p.duration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval: p.duration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Database: DatabaseConfig{
			Driver:          envOrDefault("DB_DRIVER", "postgres"),
			DSN:             os.Getenv("DB_DSN"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: envOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that parsing alone cannot catch.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.Server.Port)
	}
	switch c.Data.Source {
	case SourceDir:
		if c.Data.Dir == "" {
			return errors.New("DATA_DIR is required when DATA_SOURCE=dir")
		}
	case SourceHTTP:
		if c.Data.BaseURL == "" {
			return errors.New("DATA_BASE_URL is required when DATA_SOURCE=http")
		}
	case SourceSQL:
		if c.Database.DSN == "" {
			return errors.New("DB_DSN is required when DATA_SOURCE=sql")
		}
	default:
		return fmt.Errorf("unknown DATA_SOURCE %q", c.Data.Source)
	}
	if c.Data.Days < 1 || c.Data.Days > 366 {
		return fmt.Errorf("DATA_DAYS must be within [1,366], got %d", c.Data.Days)
	}
	if c.Data.LoadConcurrency < 1 {
		return errors.New("LOAD_CONCURRENCY must be positive")
	}
	if c.Map.CanvasWidth <= 0 || c.Map.CanvasHeight <= 0 {
		return errors.New("CANVAS_WIDTH and CANVAS_HEIGHT must be positive")
	}
	if c.Map.ColorMinK >= c.Map.ColorMaxK {
		return fmt.Errorf("COLOR_MIN_K (%g) must be below COLOR_MAX_K (%g)", c.Map.ColorMinK, c.Map.ColorMaxK)
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Options converts the settings for database.Open.
func (d DatabaseConfig) Options() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}
