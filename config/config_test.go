package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "LKR", cfg.Enforcement.DefaultCurrency)
	assert.Equal(t, 5*time.Second, cfg.Enforcement.AcquireTimeout)
	assert.False(t, cfg.Enforcement.RecordRejected)
	assert.False(t, cfg.Audit.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			wantErr: true,
			errMsg:  "store.driver must be 'sqlite' or 'postgres'",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: true,
			errMsg:  "store.path required",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: true,
			errMsg:  "store.dsn required",
		},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.Store.Driver = "postgres"
				c.Store.DSN = "postgres://localhost/treasury?sslmode=disable"
			},
		},
		{
			name:    "negative acquire timeout",
			mutate:  func(c *Config) { c.Enforcement.AcquireTimeout = -time.Second },
			wantErr: true,
			errMsg:  "enforcement.acquire_timeout must not be negative",
		},
		{
			name:    "bad currency",
			mutate:  func(c *Config) { c.Enforcement.DefaultCurrency = "RUPEE" },
			wantErr: true,
			errMsg:  "default_currency",
		},
		{
			name:    "zero breaker failures",
			mutate:  func(c *Config) { c.Breaker.MaxFailures = 0 },
			wantErr: true,
			errMsg:  "breaker.max_failures must be positive",
		},
		{
			name: "audit without dir",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.Dir = ""
			},
			wantErr: true,
			errMsg:  "audit.dir required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			errMsg:  "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Enforcement.RecordRejected = true
			cfg.Enforcement.AcquireTimeout = 750 * time.Millisecond
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Store, loaded.Store)
			assert.Equal(t, cfg.Enforcement, loaded.Enforcement)
			assert.Equal(t, cfg.Breaker, loaded.Breaker)
		})
	}
}

func TestLoadPartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enforcement:\n  acquire_timeout: 2s\n  default_currency: USD\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Enforcement.AcquireTimeout)
	assert.Equal(t, "USD", cfg.Enforcement.DefaultCurrency)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, uint32(3), cfg.Breaker.MaxFailures)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TREASURY_STORE_DRIVER", "postgres")
	t.Setenv("TREASURY_DB_DSN", "postgres://db/treasury")
	t.Setenv("TREASURY_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("TREASURY_RECORD_REJECTED", "true")
	t.Setenv("TREASURY_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://db/treasury", cfg.Store.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Enforcement.AcquireTimeout)
	assert.True(t, cfg.Enforcement.RecordRejected)
	assert.Equal(t, "debug", cfg.Log.Level)

	ec := cfg.EnforceConfig()
	assert.Equal(t, 250*time.Millisecond, ec.AcquireTimeout)
	assert.True(t, ec.RecordRejected)
	assert.Equal(t, "postgres://db/treasury", cfg.PostgresConfig().DSN)
}

func TestApplyEnvBadDuration(t *testing.T) {
	t.Setenv("TREASURY_ACQUIRE_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TREASURY_ACQUIRE_TIMEOUT")
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Development = true
	cfg.Log.Level = "warn"

	log, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))
	assert.True(t, log.Core().Enabled(1))
}
