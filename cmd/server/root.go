package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
)

var (
	// Global flags
	envFile   string
	logLevel  string
	logFormat string
)

// rootCmd serves the API when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Restaurant reservation API",
	Long: `Restaurant reservation API: reservations, tables and seating.

Commands:
  serve    - run the HTTP server (default)
  migrate  - create the schema, optionally seeding tables
  consume  - append seating events from RabbitMQ to a log file`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		level, format := logLevel, logFormat
		if level == "" {
			level = os.Getenv("LOG_LEVEL")
		}
		if format == "" {
			format = os.Getenv("LOG_FORMAT")
		}
		if format == "" {
			format = "json"
		}
		logger.Init(level, format)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json or text (overrides LOG_FORMAT)")
}
