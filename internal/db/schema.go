package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		copy_id    TEXT UNIQUE,
		token      TEXT,
		name       TEXT,
		email      TEXT,
		blocked    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		copy_id    TEXT,
		seq        REAL,
		payload    TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_copy_seq ON events(copy_id, seq);`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS, so the index lives in the table DDL.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		copy_id    VARCHAR(16) UNIQUE,
		token      VARCHAR(64),
		name       TEXT,
		email      TEXT,
		blocked    TINYINT(1) NOT NULL DEFAULT 0,
		created_at VARCHAR(19) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		copy_id    VARCHAR(16),
		seq        DOUBLE NULL,
		payload    LONGTEXT,
		created_at VARCHAR(19) NOT NULL,
		INDEX idx_events_copy_seq (copy_id, seq)
	)`,
}

// EnsureSchema creates the customers and events tables if they are absent.
// Statements run one by one; the MySQL driver rejects multi-statement Exec.
func EnsureSchema(ctx context.Context, dbx *sqlx.DB) error {
	stmts := sqliteSchema
	if dbx.DriverName() == DriverMySQL {
		stmts = mysqlSchema
	}
	for _, s := range stmts {
		if _, err := dbx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
