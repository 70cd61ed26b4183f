package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexivanou/georef/internal/api"
	"github.com/alexivanou/georef/internal/config"
	"github.com/alexivanou/georef/internal/database"
	"github.com/alexivanou/georef/internal/importer"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/internal/search"
	"github.com/alexivanou/georef/internal/service"
	"github.com/alexivanou/georef/internal/stats"
	"github.com/alexivanou/georef/migrations"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))

	if err := migrations.Up(db.DB, cfg.DB.Type); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	store := repository.NewStore(db, cfg.DB.Type)

	isEmpty, err := store.IsEmpty(ctx)
	if err != nil {
		logger.Warn("Failed to check if database is empty", zap.Error(err))
	} else if isEmpty && cfg.Loader.AutoLoad {
		logger.Info("Database is empty, loading GeoNames data...", zap.String("data_dir", cfg.Loader.DataDir))
		if _, err := importer.New(store, cfg.Loader, logger).Load(ctx, importer.Options{}); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Fatal("Failed to load GeoNames data", zap.Error(err))
			}
			logger.Warn("GeoNames files not found, serving an empty gazetteer", zap.Error(err))
		}
	}

	strategy, err := search.New(ctx, cfg.Search.Strategy, store)
	if err != nil {
		logger.Fatal("Failed to set up proximity search", zap.Error(err))
	}
	logger.Info("Proximity search ready", zap.String("strategy", strategy.Name()))

	svc := service.NewService(store, strategy, cfg.Search, cfg.Loader.SpacelessPostcodeCountries)
	statsCollector := stats.NewCollector(db, cfg.DB)
	router := api.NewRouter(svc, statsCollector, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
