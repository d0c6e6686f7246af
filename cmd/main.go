package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"burger-pos/internal/cache"
	"burger-pos/internal/catalog"
	"burger-pos/internal/config"
	"burger-pos/internal/database"
	"burger-pos/internal/logger"
	"burger-pos/internal/messaging"
	"burger-pos/internal/orders"
	"burger-pos/internal/pricing"
)

func main() {
	port := flag.Int("port", 3000, "HTTP port to listen on")
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	log := logger.New("pos-backend")

	if err := run(*port, *configPath, *migrationsPath, log); err != nil {
		log.Error("service_failed", "Service terminated", "startup", err, nil)
		os.Exit(1)
	}
}

func run(port int, configPath, migrationsPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background(), migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var publisher orders.EventPublisher
	if cfg.RabbitMQEnabled() {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer conn.Close()
		publisher = messaging.NewPublisher(conn, log)
	} else {
		log.Info("events_disabled", "RabbitMQ not configured, kitchen events disabled", "startup", nil)
	}

	var detailCache cache.Cache
	if cfg.RedisEnabled() {
		detailCache = cache.NewRedisCache(cfg.RedisAddr(), "pos-backend")
	} else {
		log.Info("cache_disabled", "Redis not configured, order detail cache disabled", "startup", nil)
	}

	pricer := pricing.NewEngine(decimal.NewFromFloat(cfg.POS.TaxRate))
	catalogStore := catalog.NewStore(db)
	repo := orders.NewPostgresRepository(db)

	service := orders.NewService(
		repo,
		catalogStore,
		pricer,
		publisher,
		detailCache,
		log,
		cfg.POS.ModifierPolicy == "strict",
	)

	timeout := time.Duration(cfg.POS.RequestTimeoutSeconds) * time.Second
	handler := orders.NewHandler(service, log, timeout)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Order service listening on port %d", port), "startup", map[string]interface{}{
			"port":            port,
			"modifier_policy": cfg.POS.ModifierPolicy,
			"tax_rate":        cfg.POS.TaxRate,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Info("shutdown_started", fmt.Sprintf("Received signal %v, shutting down", sig), "shutdown", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown_complete", "Service stopped", "shutdown", nil)
	return nil
}
