package cmd

import (
	"fmt"

	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/jmehdipour/eventlog/internal/db"
	"github.com/spf13/cobra"
)

var migrateClickHouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()

		if err := db.EnsureSchema(cmd.Context(), store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), ">> %s schema ready\n", store.DriverName())

		if !migrateClickHouse {
			return nil
		}

		ch, err := db.NewClickHouseConnection(cfg.ClickHouse.DSN, db.PoolFromConfig(cfg.ClickHouse))
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer ch.Close()

		if err := db.EnsureArchiveSchema(cmd.Context(), ch, cfg.Archiver.Table); err != nil {
			return fmt.Errorf("archive schema: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), ">> clickhouse table %s ready\n", cfg.Archiver.Table)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateClickHouse, "clickhouse", false, "also create the ClickHouse archive table")
}
