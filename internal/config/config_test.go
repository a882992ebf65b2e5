package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, SourceDir, cfg.Data.Source)
	assert.Equal(t, "./lib", cfg.Data.Dir)
	assert.Equal(t, 2024, cfg.Data.Year)
	assert.Equal(t, 129, cfg.Data.Days)
	assert.Equal(t, 16, cfg.Data.LoadConcurrency)
	assert.Equal(t, 960, cfg.Map.CanvasWidth)
	assert.Equal(t, 448, cfg.Map.CanvasHeight)
	assert.Equal(t, 8, cfg.Map.CellSize)
	assert.Equal(t, 250.0, cfg.Map.ColorMinK)
	assert.Equal(t, 300.0, cfg.Map.ColorMaxK)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATA_SOURCE", "http")
	t.Setenv("DATA_BASE_URL", "https://example.test/lib")
	t.Setenv("DATA_DAYS", "31")
	t.Setenv("LOAD_TIMEOUT", "5s")
	t.Setenv("COLOR_MIN_K", "240.5")
	t.Setenv("SESSION_IDLE_TIMEOUT", "10m")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, SourceHTTP, cfg.Data.Source)
	assert.Equal(t, "https://example.test/lib", cfg.Data.BaseURL)
	assert.Equal(t, 31, cfg.Data.Days)
	assert.Equal(t, 5*time.Second, cfg.Data.LoadTimeout)
	assert.Equal(t, 240.5, cfg.Map.ColorMinK)
	assert.Equal(t, 10*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_CollectsParseErrors(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	t.Setenv("LOAD_TIMEOUT", "-1s")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_PORT")
	assert.Contains(t, err.Error(), "LOAD_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"http source without url", func(c *Config) { c.Data.Source = SourceHTTP }, "DATA_BASE_URL"},
		{"sql source without dsn", func(c *Config) { c.Data.Source = SourceSQL }, "DB_DSN"},
		{"unknown source", func(c *Config) { c.Data.Source = "s3" }, "DATA_SOURCE"},
		{"zero days", func(c *Config) { c.Data.Days = 0 }, "DATA_DAYS"},
		{"inverted colour domain", func(c *Config) { c.Map.ColorMinK = 300 }, "COLOR_MIN_K"},
		{"bad canvas", func(c *Config) { c.Map.CanvasWidth = 0 }, "CANVAS_WIDTH"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
