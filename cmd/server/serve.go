package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/config"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/database"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/handler"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/logger"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/metrics"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/repository"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/router"
	"github.com/wanderlustelle/capstone-restaurant-reservation/internal/service"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, health, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	opts := service.Options{
		Rules:           cfg.Rules(),
		RequireSameDay:  cfg.SeatRequireSameDay,
		MutationTimeout: cfg.MutationTimeout,
		Metrics:         m,
	}
	if cfg.EventsEnabled {
		pub := service.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsQueue)
		defer pub.Close()
		opts.Publisher = pub
		log.Info("seating events enabled", "queue", cfg.EventsQueue)
	}

	deps := router.Deps{
		Services:  service.New(store, opts),
		Health:    health,
		Metrics:   m,
		Cache:     cfg.Cache,
		RateLimit: cfg.RateLimit,
	}
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			log.Warn("redis unavailable, cache and rate limit disabled", "error", err)
		} else {
			defer rdb.Close()
			deps.Redis = rdb
		}
	}

	e := router.New(deps)
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", ":"+cfg.Port, "env", cfg.Env, "driver", cfg.DBDriver)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the configured store and a health handler probing it.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, *handler.HealthHandler, error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Get().Warn("using in-memory store, data is lost on restart")
		s := repository.NewMemoryStore()
		return s, &handler.HealthHandler{Driver: config.DriverMemory, Pinger: database.PingFunc(s.Ping)}, nil
	}

	db, err := database.Open(dbOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	hh := &handler.HealthHandler{
		Driver: config.DriverMySQL,
		Pinger: db,
		Stats:  func() sql.DBStats { return db.Stats() },
	}
	return repository.NewSQLStore(db), hh, nil
}

func dbOptions(cfg config.Config) database.Options {
	return database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
}
