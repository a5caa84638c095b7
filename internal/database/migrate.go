package database

import (
	"github.com/charmbracelet/log"

	"github.com/pageza/foodgram/backend/internal/models"
)

// RunMigrations brings the schema up to date with the models
func RunMigrations(db *DB) error {
	log.Info("running auto-migration", "dialect", db.Dialector.Name())
	if err := models.AutoMigrate(db.DB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
