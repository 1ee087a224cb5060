package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/freezer-inventory/internal/adapter/handler"
	"github.com/rl1809/freezer-inventory/internal/adapter/metrics"
	"github.com/rl1809/freezer-inventory/internal/adapter/storage"
	"github.com/rl1809/freezer-inventory/internal/config"
	"github.com/rl1809/freezer-inventory/internal/core/service"
	"github.com/rl1809/freezer-inventory/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger := newLogger(cfg.LogDev)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func() error

	// Initialize store
	var repo port.LedgerRepository
	switch cfg.Store {
	case config.StoreMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Fatal("failed to connect mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping mysql", zap.Error(err))
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to create schema", zap.Error(err))
		}
		repo = mysqlAdapter
		closers = append(closers, db.Close)
		logger.Info("connected to mysql")
	default:
		repo = storage.NewCSVAdapter(cfg.File)
		logger.Info("using csv store", zap.String("file", cfg.File))
	}

	// Initialize cross-process lock
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithRefillThreshold(cfg.RefillThreshold),
	}
	switch cfg.Lock {
	case config.LockFile:
		opts = append(opts, service.WithLocker(storage.NewFlockAdapter(cfg.File, cfg.LockTimeout)))
	case config.LockRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		opts = append(opts, service.WithLocker(storage.NewRedisAdapter(rdb, "freezer-inventory", cfg.LockTimeout)))
		closers = append(closers, rdb.Close)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts = append(opts, service.WithMetrics(metrics.NewPrometheusRecorder(reg)))

	// Initialize service
	inventory, warnings, err := service.NewInventoryService(ctx, repo, cfg.Locations, opts...)
	if err != nil {
		logger.Fatal("failed to load inventory", zap.Error(err))
	}
	logger.Info("inventory loaded",
		zap.Strings("freezers", inventory.Locations()),
		zap.Int("rows", len(inventory.ListAll())),
		zap.Int("coerced_rows", len(warnings)),
		zap.Int("max_capacity", cfg.MaxCapacity),
	)

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterInventoryServer(grpcServer, handler.NewGRPCHandler(inventory, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(inventory, logger).Routes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
	logger.Info("connections closed")
}

func newLogger(dev bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}
