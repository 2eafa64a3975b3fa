package main

import (
	"authors-haven/internal/config"
	"authors-haven/internal/database"
	"authors-haven/internal/logging"
)

func main() {
	log := logging.WithComponent("migrate")
	if !config.LoadDotEnv() {
		log.Info("No .env file found, using environment variables")
	}

	dbConfig, err := database.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load database configuration")
	}
	log.WithField("driver", dbConfig.Driver).Info("🔍 Database config loaded")

	// Connect to database
	if err := database.Connect(dbConfig); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	log.Info("🔄 Running database migrations...")
	if err := database.Migrate(); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	log.Info("✅ Database migrations completed successfully")
}
