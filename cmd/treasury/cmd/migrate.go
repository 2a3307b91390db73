package cmd

import (
	"fmt"

	"github.com/rustyeddy/treasury/config"
	"github.com/rustyeddy/treasury/journal/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations (postgres)",
	Long: `Apply pending schema migrations to the PostgreSQL store.

SQLite databases apply their schema when opened and need no migration.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cfg.Store.Driver != "postgres" {
		fmt.Fprintf(out, "store driver is %s: schema is applied on open\n", cfg.Store.Driver)
		return nil
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	s, err := postgres.Open(ctx, cfg.PostgresConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info("running database migrations")
	if err := s.Migrate(ctx); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}
	v, err := s.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Migrations complete (version %d)\n", v)
	return nil
}
