package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"medride/internal/app"
	"medride/internal/auth"
	"medride/internal/broker"
	"medride/internal/config"
	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/handler"
	internalRedis "medride/internal/redis"
	"medride/internal/repository"
	"medride/internal/repository/memory"
	"medride/internal/repository/postgres"
	"medride/internal/routing"
	"medride/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	store, closeStore := openStore(ctx, cfg, nrApp, logger)
	defer closeStore()

	// Redis is optional: without it there is no caching, accept lock or idempotency.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, continuing without it")
		} else {
			redisClient = client
			defer redisClient.Close()
			logger.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
		}
	}

	bus := events.NewBus(logger)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	if cfg.RabbitMQ.Enabled {
		rabbit, err := broker.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, events stay in-process")
		} else {
			defer rabbit.Close()
			go rabbit.Run(runCtx, bus, cfg.Realtime.BufferSize)
			logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("forwarding events to rabbitmq")
		}
	}

	server := wireServer(store, redisClient, nrApp, bus, cfg, logger)

	// Start server in goroutine.
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Closing the bus ends every websocket stream so Shutdown does not wait on them.
	bus.Close()
	stopRun()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// openStore opens the configured row store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, logger *logrus.Logger) (repository.Store, func()) {
	if cfg.Store.Driver == "memory" {
		store := memory.NewStore()
		seedDemoProfiles(store)
		logger.Warn("using in-memory store, data is lost on restart")
		return store, func() {}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	logger.WithField("db", cfg.Database.DBName).Info("connected to postgres")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.WithError(err).Fatal("failed to migrate database")
		}
	}

	return postgres.NewStore(db), func() { _ = db.Close() }
}

// seedDemoProfiles gives the in-memory store one profile per role.
func seedDemoProfiles(store *memory.Store) {
	store.AddProfile(domain.Profile{ID: "demo-patient", Role: domain.RolePatient, FullName: "Demo Patient"})
	store.AddProfile(domain.Profile{ID: "demo-rider", Role: domain.RoleRider, FullName: "Demo Rider"})
	store.AddProfile(domain.Profile{ID: "demo-admin", Role: domain.RoleAdmin, FullName: "Demo Admin"})
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	store repository.Store,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	bus *events.Bus,
	cfg *config.Config,
	logger *logrus.Logger,
) *http.Server {
	// Redis-backed helpers stay nil interfaces when Redis is off.
	var (
		geocodeCache routing.GeocodeCache
		profileCache internalRedis.ProfileCacheInterface
		locker       service.AcceptLocker
	)
	if redisClient != nil {
		cacheStore := internalRedis.NewCacheStore(redisClient, cfg.Routing.GeocodeTTL)
		geocodeCache = cacheStore
		profileCache = cacheStore
		locker = internalRedis.NewLockStore(redisClient)
	}

	estimator := routing.NewClient(cfg.Routing, geocodeCache, logger)

	// Initialize services.
	profileService := service.NewProfileService(store, profileCache, logger)
	notificationService := service.NewNotificationService(store, bus, logger, nil)
	lifecycleService := service.NewLifecycleService(store, estimator, locker, notificationService, bus, logger, nil,
		service.LifecycleConfig{
			CommissionRate: cfg.Pricing.CommissionRate,
			AcceptLockTTL:  cfg.Routing.AcceptLock,
		})
	appointmentService := service.NewAppointmentService(store, logger, nil)
	invoiceService := service.NewInvoiceService(store)
	earningService := service.NewEarningService(store)
	statusLogService := service.NewStatusLogService(store)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		AppointmentHandler:  handler.NewAppointmentHandler(appointmentService, lifecycleService, invoiceService),
		RideHandler:         handler.NewRideHandler(lifecycleService, statusLogService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		EarningHandler:      handler.NewEarningHandler(earningService),
		EventsHandler:       handler.NewEventsHandler(bus, cfg.Realtime, cfg.Server.AllowedOrigins, logger),
		Verifier:            auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Profiles:            profileService,
		Bus:                 bus,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		Logger:              logger,
		RedisClient:         redisClient,
		NewRelicApp:         nrApp,
	})

	// No WriteTimeout: websocket streams stay open.
	return &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}
}
