// Package datastore opens and migrates the relational store backing the
// control engine. SQLite is the default for single-node deployments; MySQL
// is supported for shared installations.
package datastore

import (
	"fmt"
	"time"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/datastore/entities"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Manager owns the database handle and dialect flag.
type Manager struct {
	db      *gorm.DB
	isMySQL bool
}

// Open connects to the configured database and runs migrations.
func Open(settings *conf.DatabaseSettings) (*Manager, error) {
	var dialector gorm.Dialector
	isMySQL := false

	switch settings.Driver {
	case conf.DatabaseDriverSQLite:
		dialector = sqlite.Open(settings.Path)
	case conf.DatabaseDriverMySQL:
		dialector = mysql.Open(settings.DSN)
		isMySQL = true
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", settings.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	m := &Manager{db: db, isMySQL: isMySQL}
	if err := m.migrate(); err != nil {
		return nil, err
	}
	return m, nil
}

// migrate creates or updates the schema for all entities.
func (m *Manager) migrate() error {
	err := m.db.AutoMigrate(
		&entities.Observation{},
		&entities.ControlScore{},
		&entities.Alert{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DB returns the underlying gorm handle.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// IsMySQL reports whether the MySQL dialect is in use.
func (m *Manager) IsMySQL() bool {
	return m.isMySQL
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	return sqlDB.Close()
}
