package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"checkout-service/internal/config"
	mmysql "checkout-service/internal/infra/mysql"
)

func newMigrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL orders table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			db, err := mmysql.Open(mysqlConfig(cfg))
			if err != nil {
				return fmt.Errorf("db: connect: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := mmysql.Migrate(db); err != nil {
				return fmt.Errorf("db: migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrated up")
			return nil
		},
	}
}
