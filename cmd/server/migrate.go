package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/database"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

var seed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Create the reservations and restaurant_tables tables if they do not exist.

Examples:
  server migrate          # create the schema
  server migrate --seed   # also insert the starter tables when none exist`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DBDriver != config.DriverMySQL {
			return errors.New("migrate requires DB_DRIVER=mysql")
		}
		db, err := database.Open(dbOptions(cfg))
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Get().Info("schema up to date", "database", cfg.DBName)
		if !seed {
			return nil
		}
		n, err := database.SeedTables(ctx, db)
		if err != nil {
			return err
		}
		logger.Get().Info("tables seeded", "inserted", n)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&seed, "seed", false, "insert the starter tables when the table list is empty")
	rootCmd.AddCommand(migrateCmd)
}
