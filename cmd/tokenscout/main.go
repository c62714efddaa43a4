package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenscout/internal/adapter/cache"
	"tokenscout/internal/adapter/feed"
	"tokenscout/internal/adapter/handler"
	"tokenscout/internal/adapter/metadata"
	"tokenscout/internal/application/service"
	"tokenscout/internal/application/usecase"
	"tokenscout/internal/infrastructure/config"
	"tokenscout/internal/infrastructure/logger"
	"tokenscout/internal/infrastructure/server"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "tokenscout",
		Short:        "Token discovery cache service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the discovery cache service",
		RunE:  runServe,
	}
	serveCmd.Flags().Int("server.port", 8080, "HTTP listen port")
	serveCmd.Flags().String("feed.url", "", "trade feed GraphQL endpoint")
	serveCmd.Flags().String("redis.host", "localhost", "redis host")

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and exit",
		RunE:  runRefresh,
	}
	refreshCmd.Flags().String("feed.url", "", "trade feed GraphQL endpoint")
	refreshCmd.Flags().String("redis.host", "localhost", "redis host")

	root.AddCommand(serveCmd)
	root.AddCommand(refreshCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed url is required")
	}

	log.Info("starting tokenscout",
		zap.String("feed_url", cfg.Feed.URL),
		zap.String("redis_addr", cfg.RedisAddr()),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.Duration("scheduler_interval", cfg.Scheduler.Interval))

	snapshotCache, store, scheduler := buildPipeline(cfg, log)
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	if err := store.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable at startup, fallback tier will serve reads", zap.Error(err))
	}
	pingCancel()

	scheduler.Start()
	defer scheduler.Stop()

	tokenHandler := handler.NewTokenHandler(snapshotCache, log)
	adminHandler := handler.NewAdminHandler(scheduler, snapshotCache, log)
	healthHandler := handler.NewHealthHandler(store, scheduler, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tokens", tokenHandler.List)
	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.HandleFunc("GET /admin/status", adminHandler.Status)
	mux.HandleFunc("POST /admin/refresh", adminHandler.Refresh)
	mux.HandleFunc("POST /admin/cache/clear", adminHandler.ClearCache)

	srv := server.NewServer(cfg.Server.Port, mux, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed url is required")
	}

	snapshotCache, store, _ := buildPipeline(cfg, log)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Cache.RefreshTimeout)
	defer cancel()

	count, err := snapshotCache.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("refreshed %d tokens\n", count)
	return nil
}

func buildPipeline(cfg config.Config, log *zap.Logger) (*usecase.SnapshotCache, *cache.RedisStore, *service.RefreshScheduler) {
	store := cache.NewRedisStore(
		cfg.RedisAddr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.Key,
		cfg.Redis.DialTimeout,
		cfg.Redis.ReadTimeout,
	)
	fallback := cache.NewMemoryStore()

	tradeFeed := feed.NewGraphQLFeed(feed.Config{
		URL:           cfg.Feed.URL,
		Token:         cfg.Feed.Token,
		Lookback:      cfg.Feed.Lookback,
		Timeout:       cfg.Feed.Timeout,
		RatePerMinute: cfg.Feed.RatePerMinute,
	}, log)

	resolver := metadata.NewHTTPResolver(metadata.ResolverConfig{
		PrimaryTimeout: cfg.Metadata.PrimaryTimeout,
		GatewayTimeout: cfg.Metadata.GatewayTimeout,
		Gateways:       cfg.Metadata.Gateways,
	}, log)

	discovery := service.NewDiscoveryService(tradeFeed, resolver, service.DiscoveryConfig{
		BatchSize:           cfg.Feed.BatchSize,
		TotalSupply:         cfg.Discovery.TotalSupply,
		GraduationThreshold: cfg.Discovery.GraduationThreshold,
		MarketCapMin:        cfg.Discovery.MarketCapMin,
		MarketCapMax:        cfg.Discovery.MarketCapMax,
		ResolverWorkers:     cfg.Discovery.ResolverWorkers,
	}, log)

	snapshotCache := usecase.NewSnapshotCache(store, fallback, discovery, usecase.CacheConfig{
		TTL:              cfg.Cache.TTL,
		RefreshThreshold: cfg.Cache.RefreshThreshold,
		ProbeInterval:    cfg.Cache.ProbeInterval,
		RefreshTimeout:   cfg.Cache.RefreshTimeout,
	}, log)

	scheduler := service.NewRefreshScheduler(snapshotCache, cfg.Scheduler.Interval, log)

	return snapshotCache, store, scheduler
}
