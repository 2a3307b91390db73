package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/treasury/audit"
	"github.com/rustyeddy/treasury/enforce"
	"github.com/rustyeddy/treasury/exposure"
	"github.com/rustyeddy/treasury/journal/postgres"
	"github.com/rustyeddy/treasury/risk"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TREASURY_"

// Config represents the complete service configuration
type Config struct {
	Store       StoreConfig       `json:"store" yaml:"store"`
	Enforcement EnforcementConfig `json:"enforcement" yaml:"enforcement"`
	Breaker     BreakerConfig     `json:"breaker" yaml:"breaker"`
	Audit       AuditConfig       `json:"audit" yaml:"audit"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

// StoreConfig selects and configures the ledger backend
type StoreConfig struct {
	Driver       string        `json:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path         string        `json:"path,omitempty" yaml:"path,omitempty"`
	DSN          string        `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
	MaxOpenConns int           `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
}

// EnforcementConfig contains limit check parameters
type EnforcementConfig struct {
	AcquireTimeout  time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
	Shards          int           `json:"shards" yaml:"shards"`
	RecordRejected  bool          `json:"record_rejected" yaml:"record_rejected"`
	DefaultCurrency string        `json:"default_currency" yaml:"default_currency"`
}

// BreakerConfig guards exposure reads from a failing ledger
type BreakerConfig struct {
	MaxFailures uint32        `json:"max_failures" yaml:"max_failures"`
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`
	Interval    time.Duration `json:"interval" yaml:"interval"`
}

type AuditConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	Dir              string `json:"dir,omitempty" yaml:"dir,omitempty"`
	SegmentThreshold int    `json:"segment_threshold,omitempty" yaml:"segment_threshold,omitempty"`
	MaxSegments      int    `json:"max_segments,omitempty" yaml:"max_segments,omitempty"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path (defaults when empty), then .env and TREASURY_*
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load() // .env is optional
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TREASURY_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_PATH", &c.Store.Path)
	str("DB_DSN", &c.Store.DSN)
	str("DEFAULT_CURRENCY", &c.Enforcement.DefaultCurrency)
	str("AUDIT_DIR", &c.Audit.Dir)
	str("LOG_LEVEL", &c.Log.Level)

	if err := dur("QUERY_TIMEOUT", &c.Store.QueryTimeout); err != nil {
		return err
	}
	if err := dur("ACQUIRE_TIMEOUT", &c.Enforcement.AcquireTimeout); err != nil {
		return err
	}
	if err := boolean("RECORD_REJECTED", &c.Enforcement.RecordRejected); err != nil {
		return err
	}
	return boolean("AUDIT_ENABLED", &c.Audit.Enabled)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn required for postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be 'sqlite' or 'postgres'")
	}
	if c.Store.QueryTimeout < 0 {
		return fmt.Errorf("store.query_timeout must not be negative")
	}
	if c.Enforcement.AcquireTimeout < 0 {
		return fmt.Errorf("enforcement.acquire_timeout must not be negative")
	}
	if c.Enforcement.Shards < 0 {
		return fmt.Errorf("enforcement.shards must not be negative")
	}
	if len(c.Enforcement.DefaultCurrency) != 3 {
		return fmt.Errorf("enforcement.default_currency must be a 3-letter code")
	}
	if c.Breaker.MaxFailures == 0 {
		return fmt.Errorf("breaker.max_failures must be positive")
	}
	if c.Audit.Enabled && c.Audit.Dir == "" {
		return fmt.Errorf("audit.dir required when audit is enabled")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	ec := enforce.DefaultConfig()
	ac := audit.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Driver:       "sqlite",
			Path:         "./treasury.db",
			QueryTimeout: 5 * time.Second,
		},
		Enforcement: EnforcementConfig{
			AcquireTimeout:  ec.AcquireTimeout,
			Shards:          ec.Shards,
			DefaultCurrency: risk.DefaultCurrency,
		},
		Breaker: BreakerConfig{
			MaxFailures: ec.Breaker.MaxFailures,
			OpenTimeout: ec.Breaker.OpenTimeout,
			Interval:    ec.Breaker.Interval,
		},
		Audit: AuditConfig{
			Dir:              ac.Dir,
			SegmentThreshold: ac.SegmentThreshold,
			MaxSegments:      ac.MaxSegments,
		},
		Log: LogConfig{Level: "info"},
	}
}

// EnforceConfig maps the file settings onto the coordinator's.
func (c *Config) EnforceConfig() enforce.Config {
	ec := enforce.DefaultConfig()
	ec.AcquireTimeout = c.Enforcement.AcquireTimeout
	if c.Enforcement.Shards > 0 {
		ec.Shards = c.Enforcement.Shards
	}
	ec.RecordRejected = c.Enforcement.RecordRejected
	ec.Breaker = exposure.BreakerConfig{
		Name:        "ledger",
		MaxFailures: c.Breaker.MaxFailures,
		OpenTimeout: c.Breaker.OpenTimeout,
		Interval:    c.Breaker.Interval,
	}
	return ec
}

func (c *Config) PostgresConfig() postgres.Config {
	pc := postgres.DefaultConfig()
	pc.DSN = c.Store.DSN
	pc.QueryTimeout = c.Store.QueryTimeout
	if c.Store.MaxOpenConns > 0 {
		pc.MaxOpenConns = c.Store.MaxOpenConns
	}
	return pc
}

func (c *Config) AuditConfig() audit.Config {
	ac := audit.DefaultConfig()
	ac.Dir = c.Audit.Dir
	if c.Audit.SegmentThreshold > 0 {
		ac.SegmentThreshold = c.Audit.SegmentThreshold
	}
	if c.Audit.MaxSegments > 0 {
		ac.MaxSegments = c.Audit.MaxSegments
	}
	return ac
}

// Logger builds the zap logger described by the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}
