// Package db opens the sqlite-backed run-history store, following the
// teacher's internal/db.Init convention exactly.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gcsync/internal/model"
)

// DB is the process-wide handle, opened once by Init.
var DB *gorm.DB

func Init(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}

	if err := DB.AutoMigrate(&model.RunHistory{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	return nil
}
