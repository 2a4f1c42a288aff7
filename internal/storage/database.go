package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"yodabot/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the chat table is present. One row per (user, channel);
// messages holds the JSON-encoded turn history, ttl the sliding expiry.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS chat (
				user_id INTEGER NOT NULL,
				channel_id INTEGER NOT NULL,
				messages TEXT NOT NULL,
				ttl DATETIME NOT NULL,
				kind TEXT NOT NULL,
				PRIMARY KEY (user_id, channel_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_chat_ttl ON chat(ttl)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS chat (
				user_id BIGINT NOT NULL,
				channel_id BIGINT NOT NULL,
				messages JSON NOT NULL,
				ttl DATETIME NOT NULL,
				kind VARCHAR(16) NOT NULL,
				PRIMARY KEY (user_id, channel_id),
				INDEX idx_chat_ttl (ttl)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
