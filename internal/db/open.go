package db

import (
	"fmt"
	"strings"

	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/jmoiron/sqlx"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Open connects the relational store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		return NewSQLiteConnection(cfg.DSN, cfg.PingTimeout)
	case DriverMySQL:
		return NewMySQLConnection(cfg.DSN, PoolFromConfig(cfg))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// PoolFromConfig maps the config leaf onto PoolOpts.
func PoolFromConfig(cfg config.DatabaseConfig) PoolOpts {
	return PoolOpts{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		PingTimeout:     cfg.PingTimeout,
	}
}
