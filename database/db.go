package database

import (
	"fmt"
	"time"

	"topmovies/internal/config"
	"topmovies/internal/http-api/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// ConnectDB opens the PostgreSQL pool described by cfg and creates the schema if absent
func ConnectDB(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	return Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, logger)
}

func Open(dsn string, maxOpenConns int, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Verify the connection
	if err := sqlDB.Ping(); err != nil {
		// close the pool if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := autoMigrate(db, logger); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info("Connected to the database successfully")
	return db, nil
}

func autoMigrate(db *gorm.DB, logger *logrus.Logger) error {
	if err := db.AutoMigrate(&models.Movie{}); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Debug("Database schema is up to date")
	return nil
}
