package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fsubmedia/internal/api"
	"fsubmedia/internal/bot"
	"fsubmedia/internal/config"
	"fsubmedia/internal/logger"
	"fsubmedia/internal/registry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	store, err := registry.NewGormStore(dialector(cfg), log)
	if err != nil {
		log.Fatal("failed to open registry store", zap.Error(err))
	}
	defer store.Close()

	reg := registry.New(store, log)

	b, err := bot.New(cfg, log, reg)
	if err != nil {
		log.Fatal("failed to create bot", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.APIPort != "" {
		go api.New(reg, cfg.APIPort, log).Run(ctx)
	}

	b.Run(ctx)
}

// dialector picks the registry backend: Postgres when a DSN is
// configured, the SQLite file otherwise.
func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DatabaseURL != "" {
		return postgres.Open(cfg.DatabaseURL)
	}
	return sqlite.Open(cfg.DatabasePath)
}
