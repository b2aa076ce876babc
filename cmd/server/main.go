package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/clinicrisk/internal/config"
	"github.com/Skufu/clinicrisk/internal/logging"
	"github.com/Skufu/clinicrisk/internal/metrics"
	"github.com/Skufu/clinicrisk/internal/predictor"
	"github.com/Skufu/clinicrisk/internal/registry"
	"github.com/Skufu/clinicrisk/internal/tier"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds everything the router serves.
type App struct {
	DB        HealthChecker
	Registry  *registry.Registry
	Predictor *predictor.Predictor
	Locale    tier.Locale
	Origins   []string
	Gatherer  prometheus.Gatherer
	Log       logrus.FieldLogger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	var db HealthChecker
	if cfg.EnableDB {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database connection failed: %v", err)
		}
		defer pool.Close()
		db = pool
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	models := registry.LoadAll(cfg.ModelDir, logger)
	m.SetModelsLoaded(models.Loaded())

	router := setupRouter(App{
		DB:        db,
		Registry:  models,
		Predictor: predictor.New(models, logger, predictor.WithMetrics(m)),
		Locale:    tier.ParseLocale(cfg.Locale),
		Origins:   cfg.CORSOrigins,
		Gatherer:  reg,
		Log:       logger,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":          cfg.Port,
		"models_loaded": models.Loaded(),
		"locale":        cfg.Locale,
	}).Info("server listening")
	waitForShutdown(server, logger)
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse db url")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping db")
	}

	return pool, nil
}

func waitForShutdown(server *http.Server, log logrus.FieldLogger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
