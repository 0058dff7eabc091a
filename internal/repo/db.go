package repo

import (
	"chatlog/internal/model"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// DefaultSQLiteDSN используется, когда строка подключения не задана.
const DefaultSQLiteDSN = "file:chatlog.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// InitDB открывает соединение с БД и выполняет миграции.
// DSN вида postgres://... или host=... уходит в Postgres, всё остальное — в SQLite (modernc).
func InitDB(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var dial gorm.Dialector
	if isPostgresDSN(dsn) {
		dial = postgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&model.Message{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// CloseDB закрывает пул соединений gorm.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") ||
		strings.HasPrefix(lower, "postgresql://") ||
		strings.HasPrefix(lower, "host=")
}
