package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"portflow/internal/core"
	"portflow/internal/seed"
	"portflow/pkg/domain"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := core.OpenPersistentStore(ctx, core.StorageConfig{
				Driver:      core.StorageDriver(c.cfg.Storage.Driver),
				SQLitePath:  c.cfg.Storage.SQLitePath,
				PostgresDSN: c.cfg.Storage.PostgresDSN,
			})
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()
			if m, ok := store.(core.Migrator); ok {
				if err := m.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", c.cfg.Storage.Driver)
			return nil
		},
	}
}

func newSeedCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with sample port data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, svc, _, err := openService(ctx, c.cfg, c.logger, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			res, err := seed.Run(ctx, svc, seed.Options{Force: force}, c.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tables := make([]string, 0, len(res.Inserted))
			for table := range res.Inserted {
				tables = append(tables, string(table))
			}
			sort.Strings(tables)
			for _, table := range tables {
				fmt.Fprintf(out, "inserted %s: %d\n", table, res.Inserted[domain.Table(table)])
			}
			for _, table := range res.Skipped {
				fmt.Fprintf(out, "skipped %s: already populated\n", table)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "insert even when tables already hold rows")
	return cmd
}
