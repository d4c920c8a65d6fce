package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/primary"
	"ms-marketplace/internal/primary/primary_api"
	"ms-marketplace/internal/registry"
	"ms-marketplace/internal/registry/qr"
	"ms-marketplace/internal/registry/registry_api"
	"ms-marketplace/internal/secondary"
	secondaryredis "ms-marketplace/internal/secondary/redis"
	"ms-marketplace/internal/secondary/secondary_api"
	"ms-marketplace/internal/token"
	"ms-marketplace/internal/token/token_api"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	ctx := context.Background()

	bunDB, err := database.Open(cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("DATABASE", fmt.Sprintf("Failed to open database: %v", err))
	}
	defer bunDB.Close()
	if err := database.CreateSchema(ctx, bunDB); err != nil {
		appLogger.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
	}
	appLogger.Info("DATABASE", "SQLite connection successful")

	var locks secondary.ListingLocker
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
		}
		locks = secondaryredis.NewRedis(redisClient)
		appLogger.Info("REDIS", "Redis connection successful")
	} else {
		appLogger.Warn("REDIS", "Redis disabled; listing mutations are not serialized across instances")
	}

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.AllTopics(cfg.Kafka.Topics)); err != nil {
			appLogger.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	registryService := registry.NewService(bunDB, producer, cfg.Market.ValidityWindow)
	tokenService := token.NewService(bunDB)
	primaryService := primary.NewService(bunDB, registryService, tokenService, producer, cfg.Market.PrimaryAccount)
	secondaryService := secondary.NewService(bunDB, registryService, tokenService, locks, producer,
		cfg.Market.EscrowAccount, cfg.Market.FeeRatePercent)

	qrGen := qr.NewGenerator(cfg.Market.QRSecret)

	registryHandler := registry_api.NewHandler(registryService, qrGen, appLogger)
	primaryHandler := primary_api.NewHandler(primaryService, appLogger)
	secondaryHandler := secondary_api.NewHandler(secondaryService, appLogger)
	tokenHandler := token_api.NewHandler(tokenService)

	r := chi.NewRouter()
	r.Use(requestLogger(appLogger))
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/registry", registryHandler.Routes)
	r.Route("/market", primaryHandler.Routes)
	r.Route("/resale", secondaryHandler.Routes)
	tokenHandler.Routes(r)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("SERVER", fmt.Sprintf("Marketplace service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	appLogger.Info("SERVER", "Marketplace service shutdown complete")
}

// requestLogger logs every request with status and latency.
func requestLogger(l *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			l.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", sw.status), time.Since(start).String())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
