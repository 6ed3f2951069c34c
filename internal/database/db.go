package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the database named by url. Postgres URLs/DSNs use the
// pgx-backed postgres driver; "sqlite:<path>" and "file:<path>" use SQLite,
// which is meant for local development and tests.
func Connect(url string, log *slog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch {
	case strings.HasPrefix(url, "sqlite:"):
		db, err = OpenSQLite(strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		db, err = OpenSQLite(url)
	default:
		db, err = gorm.Open(postgres.Open(url), gormConfig())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established", "driver", db.Dialector.Name())
	return db, nil
}

// OpenSQLite opens a SQLite database with foreign keys enabled.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	return gorm.Open(sqlite.Open(dsn), gormConfig())
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// Keep every timestamp in UTC so stored values compare consistently.
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	log.Info("running migrations")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return nil
}
