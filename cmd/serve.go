package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/controller"
	"enclosure_gateway/internal/handlers"
	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/metrics"
	"enclosure_gateway/internal/repository"
	"enclosure_gateway/internal/repository/db"
	"enclosure_gateway/internal/server"
	"enclosure_gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run telemetry ingestion and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe wires every component and blocks until ctx is cancelled or the
// controller link is lost.
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// open DB; operators always live in sqlite, the log follows store.driver
	database, err := db.InitDB(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()

	var store repository.LogStore
	if cfg.Store.Driver == config.StoreBadger {
		b, err := repository.OpenLogBadger(cfg.Store.BadgerPath)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := b.Close(); cerr != nil {
				log.Errorw("badger_close_failed", "err", cerr)
			}
		}()
		store = b
	}

	trail, err := repository.OpenRawTrail(cfg.RawTrail.Path)
	if err != nil {
		return err
	}
	defer trail.Close()

	link, err := controller.Open(ctx, cfg.Controller, log)
	if err != nil {
		return fmt.Errorf("open controller link: %w", err)
	}
	defer link.Close()

	prom := metrics.NewPrometheus()

	var sink service.TelemetrySink
	if cfg.Influx.Enabled {
		influx, err := metrics.ConnectInflux(ctx, cfg.Influx, log.Named("influx"))
		if err != nil {
			log.Warnw("influx_disabled", "err", err)
		} else {
			defer influx.Close()
			sink = influx
		}
	}

	// wire dependencies
	repos := repository.NewRepository(database, store, trail)
	services := service.NewService(ctx, service.Deps{
		Repos:          repos,
		Source:         link,
		Transport:      link,
		Sink:           sink,
		Recorder:       prom,
		Logger:         log,
		CommandTimeout: cfg.Controller.CommandTimeout,
		SigningKey:     cfg.Auth.SigningKey,
		TokenTTL:       cfg.Auth.TokenTTL,
	})

	var limiter *rate.Limiter
	if cfg.Commands.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Commands.RatePerSecond), max(cfg.Commands.Burst, 1))
	}
	apiHandler := handlers.NewHandler(services, log.Named("http"), handlers.Options{
		AuthEnabled:    cfg.Auth.Enabled,
		Metrics:        prom.Handler(),
		CommandLimiter: limiter,
	})

	srv := &server.Server{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.Run(gctx)
	})
	g.Go(func() error {
		log.Infow("http_listening", "port", cfg.Port, "controller", cfg.Controller.Kind, "store", cfg.Store.Driver)
		return srv.Run(cfg.Port, apiHandler.InitRoutes())
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
