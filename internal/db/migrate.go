package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"inspection_log/internal/model"
)

// Models lists every table managed by Migrate
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.InspectionForm{},
	}
}

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB, log *logrus.Entry) error {
	log.Info("Starting database migration...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithField("tables", len(models)).Info("Database migration completed")
	return nil
}
