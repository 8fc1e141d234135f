package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"phonedeck/internal/cache"
	"phonedeck/internal/config"
	"phonedeck/internal/ebay"
	"phonedeck/internal/handler"
	"phonedeck/internal/logger"
	"phonedeck/internal/repository"
	"phonedeck/internal/router"
	"phonedeck/internal/service"
	"phonedeck/internal/wholecell"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	logger.Init(cfg.App.Debug || cfg.App.IsDevelopment())
	defer logger.Sync()

	logger.Log.Info("starting phonedeck",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version))

	// Item store backend
	var (
		itemRepo       repository.ItemRepository
		checkpointRepo repository.CheckpointRepository
	)
	switch cfg.InventoryDB.Type {
	case "postgres", "postgresql":
		repo, err := repository.NewPostgresItemRepository(cfg.InventoryDB.PostgresDSN())
		if err != nil {
			logger.Log.Fatal("failed to initialize postgres", zap.Error(err))
		}
		itemRepo, checkpointRepo = repo, repo
	case "mysql":
		repo, err := repository.NewMySQLItemRepository(cfg.InventoryDB.MySQLDSN())
		if err != nil {
			logger.Log.Fatal("failed to initialize mysql", zap.Error(err))
		}
		itemRepo, checkpointRepo = repo, repo
	default: // sqlite
		repo, err := repository.NewSQLiteItemRepository(cfg.InventoryDB.Path)
		if err != nil {
			logger.Log.Fatal("failed to initialize sqlite", zap.Error(err))
		}
		itemRepo, checkpointRepo = repo, repo
	}
	defer itemRepo.Close()

	// Cache backend
	var appCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			logger.Log.Fatal("failed to connect to redis", zap.Error(err))
		}
		appCache = redisCache
		logger.Log.Info("redis cache initialized", zap.String("addr", cfg.Cache.RedisAddress()))
	} else {
		appCache = cache.NewMemoryCache()
		logger.Log.Info("memory cache initialized")
	}
	defer appCache.Close()

	// Vendor and marketplace clients
	wholecellClient := wholecell.NewClient(cfg.WholeCell)
	ebayClient := ebay.NewClient(cfg.Ebay, cfg.App.BaseURL+"/api/ebay/callback")

	// Services
	itemService := service.NewItemService(itemRepo, appCache, cfg.Cache.TTL)
	listingService := service.NewListingService(itemService)
	syncService := service.NewSyncService(wholecellClient, itemRepo, checkpointRepo, appCache, cfg.WholeCell.StatusFilter)
	ebayService := service.NewEbayService(ebayClient, itemService, appCache)

	// Background sync schedule
	if cfg.Sync.ScheduleEnabled {
		scheduler := service.NewScheduler(syncService, cfg.Sync.Schedule)
		if err := scheduler.Start(); err != nil {
			logger.Log.Fatal("failed to start sync scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	// Router
	r := router.New(router.Config{
		Handler:          handler.New(cfg.App.Version, checkpointRepo),
		SyncHandler:      handler.NewSyncHandler(syncService),
		InventoryHandler: handler.NewInventoryHandler(itemService, listingService),
		ExportHandler:    handler.NewExportHandler(itemService),
		EbayHandler:      handler.NewEbayHandler(ebayService),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("server shutdown error", zap.Error(err))
	}

	logger.Log.Info("server stopped")
}
