package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/infra/config"
	"github.com/greenvalley/society-portal/internal/infra/database"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/infra/security"
)

// migrate applies the schema and, when SOCIETY_ADMIN_EMAIL and
// SOCIETY_ADMIN_PASSWORD are set, seeds the first administrator.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.OpenGorm(cfg.Postgres, cfg.App.Env)
	if err != nil {
		lg.Fatal("open database", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := database.Migrate(ctx, db, lg); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	email := strings.TrimSpace(os.Getenv("SOCIETY_ADMIN_EMAIL"))
	password := os.Getenv("SOCIETY_ADMIN_PASSWORD")
	if email == "" || password == "" {
		lg.Info("admin seed skipped, SOCIETY_ADMIN_EMAIL or SOCIETY_ADMIN_PASSWORD not set")
		return
	}

	if err := security.NewPasswordPolicy(cfg.Password).Validate(password, email); err != nil {
		lg.Fatal("admin password rejected", zap.Error(err))
	}
	hasher, err := security.NewArgon2Hasher(security.Argon2ConfigFromSettings(cfg.Argon2))
	if err != nil {
		lg.Fatal("configure argon2", zap.Error(err))
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		lg.Fatal("hash admin password", zap.Error(err))
	}

	name := os.Getenv("SOCIETY_ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}
	created, err := database.SeedAdmin(ctx, db, database.AdminSeed{
		Email:        email,
		Name:         name,
		Phone:        os.Getenv("SOCIETY_ADMIN_PHONE"),
		PasswordHash: hash,
	})
	if err != nil {
		lg.Fatal("seed admin", zap.Error(err))
	}
	lg.Info("admin seed finished", zap.String("email", email), zap.Bool("created", created))
}
