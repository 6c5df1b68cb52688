package database

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tutorfinder/internal/config"
)

// OpenMemory opens a private, migrated in-memory sqlite database. A single
// connection is kept so the database lives as long as the handle and
// concurrent callers queue on the pool.
func OpenMemory() (*gorm.DB, error) {
	cfg := config.DBConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	db, err := Open(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
