package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application/services"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/config"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/events"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/persistence/postgres"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/infrastructure/phonepe"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/interfaces/rest"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/interfaces/rest/middleware"
	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment service",
		"port", cfg.Server.Port,
		"psp_environment", cfg.PSP.Environment,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pspClient, err := phonepe.New(cfg.PSP)
	if err != nil {
		logger.Error("failed to build psp client", "error", err)
		os.Exit(1)
	}

	repos := postgres.NewRepositories(db)
	prices := postgres.NewPriceRepository(db)
	coordinator := postgres.NewTransactionCoordinator(db)
	discounts := services.NewDiscountService(repos.Redeems)

	var publisher application.EventPublisher
	if cfg.Kafka.Brokers != "" {
		kafkaPublisher := events.NewPublisher(strings.Split(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("payment event publishing enabled", "topic", cfg.Kafka.Topic)
	}

	paymentService := services.NewPaymentService(
		coordinator,
		repos,
		prices,
		pspClient,
		discounts,
		publisher,
		cfg.Reconcile.Delay,
		logger,
	)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		logger.Info("reconcile leasing enabled", "redis_addr", cfg.Redis.Addr)
	}

	handler := rest.NewPaymentHandler(paymentService)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	chain := middleware.Recovery(logger)(mux)
	chain = middleware.Logging(logger)(chain)
	chain = middleware.Timeout(cfg.Server.ReadTimeout)(chain)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		repos.Jobs,
		paymentService,
		redisClient,
		cfg.Reconcile.Interval,
		cfg.Reconcile.BatchSize,
		cfg.Reconcile.LeaseTTL,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
