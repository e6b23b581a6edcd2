package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/cache"
	"github.com/satyamkes/JanSahyog/internal/config"
	"github.com/satyamkes/JanSahyog/internal/database"
	"github.com/satyamkes/JanSahyog/internal/logger"
	"github.com/satyamkes/JanSahyog/internal/models"
	"github.com/satyamkes/JanSahyog/internal/seed"
	"github.com/satyamkes/JanSahyog/internal/service"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML or JSON config file")
	catalogFile := flag.String("file", "", "JSON catalog to load (defaults to the bundled sample schemes)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg, zl, *catalogFile); err != nil {
		zl.Error("seeding failed", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}
	zl.Sync()
}

func run(cfg *config.Config, zl *zap.Logger, catalogFile string) error {
	reqs, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}
	defer store.Close()

	opts := []service.Option{service.WithLogger(zl)}
	// a running API shares the redis list cache, so seeding must invalidate it
	if cfg.Cache.Backend == config.CacheRedis {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cache.DefaultPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to cache: %w", err)
		}
		defer rc.Close()
		opts = append(opts, service.WithCache(rc, cfg.Cache.TTL))
	}

	res, err := seed.Run(ctx, service.NewService(store, opts...), reqs, zl)
	if err != nil {
		zl.Warn("seeding stopped early", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
		return err
	}
	zl.Info("seeding finished", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return nil
}

// loadCatalog reads path, or the bundled sample schemes when path is empty.
func loadCatalog(path string) ([]models.CreateSchemeRequest, error) {
	if path == "" {
		reqs, err := seed.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("failed to read bundled catalog: %w", err)
		}
		return reqs, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	reqs, err := seed.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return reqs, nil
}
