package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/seed"
)

func main() {
	var upstreamToken string
	flag.StringVar(&upstreamToken, "upstream-token", "", "Bearer token forwarded to the backend for every demo session")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("seed")

	cfg := config.FromEnv()
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	sessions, err := seed.Apply(ctx, pool, cfg.SessionTTL, upstreamToken)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	for _, s := range sessions {
		logger.Info("demo session ready",
			zap.String("username", s.Username),
			zap.String("role", string(s.Role)),
			zap.String("token", s.Token),
			zap.Time("expires_at", s.ExpiresAt),
		)
	}
}
