package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/greenvalley/society-portal/internal/infra/config"
)

// OpenGorm opens a gorm handle used only by schema tooling.
func OpenGorm(cfg config.PostgresSettings, env string) (*gorm.DB, error) {
	level := gormlogger.Warn
	if env == "development" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// Migrate creates the schema, its tables and indexes, then the foreign keys.
// It is idempotent.
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	start := time.Now()
	db = db.WithContext(ctx)

	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + Schema).Error; err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, fk := range foreignKeys {
		if db.Migrator().HasConstraint(fk.model, fk.name) {
			continue
		}
		if err := db.Exec(fk.ddl).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", fk.name, err)
		}
		log.Info("added foreign key", zap.String("constraint", fk.name))
	}

	log.Info("database migration completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// AdminSeed describes the first administrator account.
type AdminSeed struct {
	Email        string
	Name         string
	Phone        string
	PasswordHash string
}

// SeedAdmin inserts an APPROVED administrator unless the email already exists.
// It reports whether a row was created.
func SeedAdmin(ctx context.Context, db *gorm.DB, seed AdminSeed) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || seed.PasswordHash == "" {
		return false, errors.New("admin email and password hash are required")
	}

	now := time.Now().UTC()
	admin := userModel{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         seed.Name,
		Phone:        seed.Phone,
		PasswordHash: seed.PasswordHash,
		Role:         "ADMIN",
		Status:       "APPROVED",
		UserType:     "OWNER",
		ApprovedAt:   &now,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	result := db.WithContext(ctx).
		Where(userModel{Email: email}).
		Attrs(admin).
		FirstOrCreate(&admin)
	if result.Error != nil {
		return false, fmt.Errorf("seed admin: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
