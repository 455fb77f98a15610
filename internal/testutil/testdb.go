package testutil

import (
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/database"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	return database.Open(":memory:", logger.Default.LogMode(logger.Silent))
}
