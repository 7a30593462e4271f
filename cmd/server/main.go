package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rumahku/server/config"
	"rumahku/server/internal/api"
	"rumahku/server/internal/database"
	"rumahku/server/internal/district"
	"rumahku/server/internal/locations"
	"rumahku/server/internal/page"
	"rumahku/server/internal/predictor"
	"rumahku/server/internal/scheduler"
	"rumahku/server/internal/session"
	"rumahku/server/internal/upstream"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Initialize upstream clients
	httpClient := upstream.NewClient(upstream.Options{
		Timeout:  cfg.Upstream.Timeout,
		RetryMax: cfg.Upstream.RetryMax,
	}, logger)
	deps := page.Deps{
		Districts: district.NewClient(cfg.DistrictBaseURL, httpClient),
		Locations: locations.NewClient(cfg.APIBaseURL, cfg.LocationLimit, httpClient),
		Predictor: predictor.NewClient(cfg.APIBaseURL, httpClient),
		CacheTTL:  cfg.DistrictCache.TTL,
	}

	// District lists are cached in SQLite unless the path is empty
	if cfg.DistrictCache.Path != "" {
		logger.Infof("Using district cache at: %s", cfg.DistrictCache.Path)
		db, err := database.NewDatabase(cfg.DistrictCache.Path)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}
		deps.Cache = db

		jobs := []scheduler.Job{{
			Name:     "warm-districts",
			Interval: cfg.DistrictCache.RefreshInterval,
			Run:      scheduler.WarmDistricts(deps.Districts, db, config.SupportedCities, logger),
		}}
		if cfg.DistrictCache.TTL > 0 {
			jobs = append(jobs, scheduler.Job{
				Name:         "purge-districts",
				Interval:     cfg.DistrictCache.PurgeInterval,
				RunAtStartup: true,
				Run:          scheduler.PurgeDistricts(db, cfg.DistrictCache.TTL, logger),
			})
		}

		sched := scheduler.NewScheduler(logger, jobs...)
		sched.Start()
		defer sched.Stop()
	}

	// One page composer per visitor
	store := session.NewStore(func() *page.Composer {
		return page.New(deps, logger)
	}, cfg.Session.IdleTTL, logger)
	store.Start(cfg.Session.SweepInterval)
	defer store.Stop()

	// Initialize handler
	handler := api.NewHandler(store, api.Options{
		CookieName:           cfg.Session.CookieName,
		SettleTimeout:        cfg.Session.SettleTimeout,
		LocationLimit:        cfg.LocationLimit,
		PredictRatePerMinute: cfg.PredictRatePerMinute,
		LimiterSweepInterval: cfg.Session.SweepInterval,
	}, logger)
	defer handler.Stop()

	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, handler, cfg.PublicDir, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
