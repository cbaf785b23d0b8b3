package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/queue"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Append seating events to the seating log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := &queue.Consumer{URL: cfg.RabbitURL, Queue: cfg.EventsQueue, LogPath: cfg.SeatingLogPath}
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
