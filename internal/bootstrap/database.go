package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"autoorderbot/internal/models"
)

// MigrateAndSeed ensures required tables exist and marks the configured
// admin account.
func MigrateAndSeed(db *gorm.DB, adminID string) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := ensureAdmin(db, adminID); err != nil {
		return fmt.Errorf("seed admin failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Order{},
		&models.RedeemCode{},
	}
}

// ensureAdmin flips is_admin for the configured admin chat ID if that
// user already exists. First contact via /start also sets the flag, so
// this only matters after changing BOT_ADMIN_ID on a live database.
func ensureAdmin(db *gorm.DB, adminID string) error {
	if adminID == "" {
		return nil
	}
	return db.Model(&models.User{}).
		Where("id = ? AND is_admin = ?", adminID, false).
		Update("is_admin", true).Error
}
