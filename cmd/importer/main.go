package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/remote"
	sessionrepo "storefront/internal/repository/session"
	"storefront/internal/service/products"
	sessionsvc "storefront/internal/service/session"
)

func main() {
	var (
		filePath string
		token    string
	)
	flag.StringVar(&filePath, "file", "", "Path to product CSV file")
	flag.StringVar(&token, "token", "", "Session token of a seller or admin")
	flag.Parse()

	if filePath == "" || token == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("importer")

	cfg := config.FromEnv()
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	sessions := sessionsvc.New(sessionrepo.NewPostgres(pool), nil, nil, cfg.SessionTTL, logger)
	sess, err := sessions.Resolve(ctx, token)
	if err != nil {
		logger.Fatal("resolve session", zap.Error(err))
	}

	client, err := remote.NewProductClient(cfg.ProductServiceURL, remote.Options{Timeout: cfg.UpstreamTimeout, Logger: logger})
	if err != nil {
		logger.Fatal("product client", zap.Error(err))
	}
	// Nothing is cached in this process, so there is no catalog to invalidate.
	svc := products.New(client, nil, logger)

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, svc, sess, logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d products as %s in %s\n", count, sess.Username, time.Since(start).Truncate(time.Millisecond))
}
