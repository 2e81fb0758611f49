package database

import (
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/models"
)

// SeedOptions describes the bootstrap admin account created on first start.
type SeedOptions struct {
	AdminEmail string
	AdminName  string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.Review{},
		&models.Bug{},
		&models.Notification{},
		&models.SystemSetting{},
	)
}

// SeedData creates the bootstrap superAdmin when one is configured. Existing rows are left untouched.
func SeedData(db *gorm.DB, seed SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(seed.AdminEmail))
	if email == "" {
		return nil
	}

	admin := models.Admin{
		Email:    email,
		FullName: strings.TrimSpace(seed.AdminName),
		Role:     models.RoleSuperAdmin,
	}
	return db.Where(models.Admin{Email: email}).Attrs(admin).FirstOrCreate(&models.Admin{}).Error
}
