package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"price-prediction-service/internal/adapters/primary/http/handlers"
	"price-prediction-service/internal/adapters/primary/http/middleware"
	"price-prediction-service/internal/adapters/secondary/artifact"
	"price-prediction-service/internal/adapters/secondary/metrics"
	"price-prediction-service/internal/adapters/secondary/postgres"
	"price-prediction-service/internal/config"
	ports "price-prediction-service/internal/core/ports/output"
	"price-prediction-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config) error {
	// The listener is only bound once the model is in memory, so a replica
	// that cannot load its artifact never passes a readiness probe.
	log.WithField("path", cfg.Model.Path).Info("loading model artifact")
	model, err := artifact.Load(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	// Metrics (Optional - based on config)
	var predictionMetrics ports.PredictionMetrics = ports.NopMetrics{}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		collector.SetModelInfo(model.Name(), model.Version(), string(model.Kind()))
		predictionMetrics = collector
		log.Info("metrics enabled")
	} else {
		log.Info("metrics disabled")
	}

	// Prediction log (Optional - based on config)
	var recorder ports.PredictionRecorder = ports.NopRecorder{}
	if cfg.PredictionLog.Enabled {
		pool, err := newPool(cfg.Database)
		if err != nil {
			log.Warnf("prediction log init failed (continuing without it): %v", err)
		} else {
			defer pool.Close()

			predictionLog := postgres.NewPredictionLog(pool, postgres.PredictionLogOptions{
				BufferSize:    cfg.PredictionLog.BufferSize,
				BatchSize:     cfg.PredictionLog.BatchSize,
				FlushInterval: cfg.PredictionLog.FlushInterval,
				WriteTimeout:  cfg.PredictionLog.WriteTimeout,
			}, predictionMetrics)
			if err := predictionLog.EnsureSchema(context.Background()); err != nil {
				log.Warnf("prediction log schema init failed (continuing without it): %v", err)
			} else {
				predictionLog.Start()
				recorder = predictionLog
				log.Info("prediction log enabled")
			}
		}
	} else {
		log.Info("prediction log disabled")
	}

	predictionSvc := services.NewPredictionService(model, cfg.Predict.StrictFields, recorder, predictionMetrics)
	h := handlers.New(predictionSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())
	if collector != nil {
		router.Use(middleware.Metrics(collector))
		router.GET(cfg.Metrics.Path, gin.WrapH(collector.Handler()))
	}
	h.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{
			"addr":    addr,
			"model":   model.Name(),
			"version": model.Version(),
		}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.WithField("grace_period", cfg.Server.ShutdownTimeout).Info("shutting down server...")

		return shutdown(srv, recorder, cfg.Server.ShutdownTimeout)
	})

	return g.Wait()
}

// shutdown stops the server and then drains the prediction log, even when
// in-flight requests outlived the grace period. Each step gets its own budget.
func shutdown(srv httpServer, recorder ports.PredictionRecorder, timeout time.Duration) error {
	var errs []error

	srvCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(srvCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced shutdown: %w", err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), timeout)
	defer cancelDrain()
	if err := recorder.Close(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("close prediction log: %w", err))
	}
	return errors.Join(errs...)
}

type httpServer interface {
	Shutdown(ctx context.Context) error
}

func newPool(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connection established")

	return pool, nil
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
