// Command manage runs maintenance tasks against the foodgram database.
package main

import (
	"os"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
)

func main() {
	if err := newRootCommand(openDatabase).Execute(); err != nil {
		// Cobra prints the error.
		os.Exit(1)
	}
}

func openDatabase() (*gorm.DB, *config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}
