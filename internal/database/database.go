package database

import (
	"context"
	"fmt"
	"time"

	"productos/internal/config"
	"productos/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM handle for the given driver. The connection is not
// pinged, so an unreachable server does not stop the process from starting.
func Open(driver, dsn string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing: true,
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

// Prepare creates the products table if needed and seeds it when empty.
// It reports whether seed rows were inserted.
func Prepare(ctx context.Context, db *gorm.DB) (bool, error) {
	if err := db.WithContext(ctx).AutoMigrate(&models.Product{}); err != nil {
		return false, fmt.Errorf("failed to auto-migrate products: %w", err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return false, backfillSearchKeys(ctx, db)
	}

	seed := models.SeedProducts()
	now := time.Now().UTC()
	for i := range seed {
		seed[i].CreatedAt = now
		seed[i].Active = true
		seed[i].Version = 1
	}
	if err := db.WithContext(ctx).Create(&seed).Error; err != nil {
		return false, fmt.Errorf("failed to seed products: %w", err)
	}
	return true, nil
}

// backfillSearchKeys fills the folded search columns of rows written before
// those columns existed.
func backfillSearchKeys(ctx context.Context, db *gorm.DB) error {
	var stale []models.Product
	if err := db.WithContext(ctx).Where("search_name = ?", "").Find(&stale).Error; err != nil {
		return fmt.Errorf("failed to load products without search keys: %w", err)
	}
	for i := range stale {
		stale[i].SetSearchKeys()
		err := db.WithContext(ctx).Model(&stale[i]).UpdateColumns(map[string]interface{}{
			"search_name":        stale[i].SearchName,
			"search_description": stale[i].SearchDescription,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to backfill search keys for product %d: %w", stale[i].ID, err)
		}
	}
	return nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
