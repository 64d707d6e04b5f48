package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules"
	"github.com/iota-uz/taskgate/modules/tasks/infrastructure/memory"
	"github.com/iota-uz/taskgate/modules/tasks/services"
	"github.com/iota-uz/taskgate/pkg/application"
	"github.com/iota-uz/taskgate/pkg/configuration"
	"github.com/iota-uz/taskgate/pkg/eventbus"
	"github.com/iota-uz/taskgate/pkg/logging"
	"github.com/iota-uz/taskgate/pkg/metrics"
	"github.com/iota-uz/taskgate/pkg/middleware"
	"github.com/iota-uz/taskgate/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	var (
		pool  *pgxpool.Pool
		repos *services.Repositories
	)
	if conf.StorageDriver == configuration.StorageDriverMemory {
		store := memory.NewStore()
		memory.SeedDemo(store)
		r := store.Repositories()
		repos = &r
		logger.Warn("using in-memory storage; data is lost on exit")
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		p, err := pgxpool.New(ctx, conf.Database.Opts)
		cancel()
		if err != nil {
			panic(err)
		}
		defer p.Close()
		pool = p
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader
	app.RegisterMiddleware(middleware.WithLogger(logger, loggerOpts))
	if conf.RateLimit.Enabled && conf.RateLimit.GlobalRPS > 0 {
		store := middleware.NewMemoryStore()
		if conf.RateLimit.Storage == "redis" {
			redisStore, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
			} else {
				store = redisStore
			}
		}
		app.RegisterMiddleware(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerPeriod: conf.RateLimit.GlobalRPS,
			Store:             store,
		}, logger))
	}
	app.RegisterMiddleware(middleware.WithIdentity(middleware.HeaderIdentityResolver{
		UserIDHeader: conf.Identity.UserIDHeader,
		RoleHeader:   conf.Identity.RoleHeader,
		UnitHeader:   conf.Identity.UnitHeader,
	}))

	if err := modules.Load(app, modules.BuiltInModules(conf, repos)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, metrics.WithLogger(logger)))
	}

	srv := server.NewHTTPServer(app, server.Options{AllowedOrigins: conf.AllowedOrigins()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on: %s\n", conf.SocketAddress)
		errCh <- srv.Start(conf.SocketAddress)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("graceful shutdown failed")
		}
		logger.Info("server stopped")
	}
}
