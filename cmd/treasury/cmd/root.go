package cmd

import (
	"context"
	"fmt"

	"github.com/rustyeddy/treasury/audit"
	"github.com/rustyeddy/treasury/config"
	"github.com/rustyeddy/treasury/journal"
	"github.com/rustyeddy/treasury/journal/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "treasury",
	Short: "Counterparty limit enforcement for treasury bookings",
	Long: `Treasury checks proposed transactions against counterparty limits
before they are booked.

It provides tools for:
  - Configuring overall and per-product counterparty limits
  - Checking and booking proposals with per-counterparty serialization
  - Reporting current exposure and headroom
  - Approving or rejecting booked transactions
  - Generating and storing semi-annual bond coupon schedules

Backends are SQLite (default) or PostgreSQL, selected in the config file.`,
	SilenceUsage: true,
}

var cfgFile string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults plus TREASURY_* env when empty")
}

// app bundles what a command needs once the config is loaded.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store journal.Store
	audit *audit.WAL
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	if a.store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if cfg.Audit.Enabled {
		if a.audit, err = audit.Open(cfg.AuditConfig()); err != nil {
			a.store.Close()
			return nil, err
		}
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (journal.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.PostgresConfig())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		s, err := journal.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Store.Path, err)
		}
		return s, nil
	}
}

func (a *app) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.log.Warn("close audit log", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}
