package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/models"
)

var DB *gorm.DB

// InitDB opens the database file, runs migrations and installs the
// connection as the package default.
func InitDB(path string, log *zap.Logger) error {
	db, err := Open(path, gormLogger(log))
	if err != nil {
		return err
	}
	DB = db
	log.Info("database connected and migrated", zap.String("path", path))
	return nil
}

// Open connects to a SQLite database and migrates the schema. Foreign keys are
// switched on so deleting a task cascades to its sub-tasks.
func Open(path string, gl logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(path)), &gorm.Config{
		Logger:         gl,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if strings.HasPrefix(path, ":memory:") {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the gateway serves.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.UserProfile{},
		&models.Task{},
		&models.SubTask{},
		&models.Object{},
	)
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}

func withForeignKeys(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func gormLogger(log *zap.Logger) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
