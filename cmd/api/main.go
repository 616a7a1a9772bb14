package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/pricing"
	"storefront/internal/remote"
	"storefront/internal/repository/cartsnapshot"
	sessionrepo "storefront/internal/repository/session"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/catalog"
	"storefront/internal/service/products"
	sessionsvc "storefront/internal/service/session"
)

const sweepInterval = 10 * time.Minute

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Listings still work without the cache, just uncached.
		logger.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	opts := remote.Options{Timeout: cfg.UpstreamTimeout, Logger: logger.Named("remote")}
	cartClient, err := remote.NewCartClient(cfg.CartServiceURL, opts)
	if err != nil {
		logger.Fatal("cart client", zap.Error(err))
	}
	catalogClient, err := remote.NewCatalogClient(cfg.CatalogServiceURL, opts)
	if err != nil {
		logger.Fatal("catalog client", zap.Error(err))
	}
	productClient, err := remote.NewProductClient(cfg.ProductServiceURL, opts)
	if err != nil {
		logger.Fatal("product client", zap.Error(err))
	}

	authClient, err := remote.NewAuthClient(cfg.AuthServiceURL, opts)
	if err != nil {
		logger.Fatal("auth client", zap.Error(err))
	}

	formatter, err := pricing.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		logger.Fatal("price formatter", zap.Error(err))
	}
	policy := pricing.Policy{Threshold: cfg.FreeShippingThreshold, FlatFee: cfg.FlatShippingFee}

	catalogService := catalog.New(catalogClient, catalog.NewRedisCache(rdb, cfg.CatalogCacheTTL), cfg.CatalogPageSize, logger.Named("catalog"))
	productService := products.New(productClient, catalogService, logger.Named("products"))
	carts := cartsvc.NewRegistry(cartClient, cartsnapshot.NewPostgres(dbpool), policy, logger.Named("cart"))
	sessions := sessionsvc.New(sessionrepo.NewPostgres(dbpool), carts, authClient, cfg.SessionTTL, logger.Named("session"))
	go sessions.RunSweeper(ctx, sweepInterval)

	srv, err := httpserver.New(cfg.HTTPAddr, logger.Named("http"), dbpool, httpserver.Deps{
		Sessions:         sessions,
		Carts:            carts,
		Catalog:          catalogService,
		Products:         productService,
		Formatter:        formatter,
		PlaceholderImage: cfg.PlaceholderImage,
		CORSOrigins:      cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
