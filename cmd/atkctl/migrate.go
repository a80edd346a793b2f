package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-tokenization-kit/internal/storage/migrations"
	pgstore "asset-tokenization-kit/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded PostgreSQL and ClickHouse migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("postgres dsn is not configured (set postgres_dsn or ATK_POSTGRES_DSN)")
			}
			ctx := cmd.Context()
			log := logger.WithField("component", "migrate")

			pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				return err
			}
			log.WithField("applied", len(applied)).Info("postgres migrations up to date")

			if cfg.ClickHouseDSN == "" {
				return nil
			}
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
			if err != nil {
				return err
			}
			defer conn.Close()
			log.Info("clickhouse migrations applied")
			return nil
		},
	}
}
