package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// NewClickHouseConnection opens the archive sink,
// e.g. clickhouse://default:@localhost:9000/eventlog?dial_timeout=5s
func NewClickHouseConnection(dsn string, opts PoolOpts) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty ClickHouse DSN")
	}
	db, err := sqlx.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	opts.apply(db)

	if err := ping(db, opts.PingTimeout, 3*time.Second); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return db, nil
}

// EnsureArchiveSchema creates the event archive table if it does not exist.
// Replays of the same envelope collapse on envelope_id at merge time.
func EnsureArchiveSchema(ctx context.Context, ch *sqlx.DB, table string) error {
	q := `
		CREATE TABLE IF NOT EXISTS ` + table + ` (
			envelope_id String,
			event_id    Int64,
			copy_id     String,
			seq         Nullable(Float64),
			payload     String,
			created_at  String,
			archived_at DateTime
		) ENGINE = ReplacingMergeTree
		ORDER BY (copy_id, envelope_id)
	`
	_, err := ch.ExecContext(ctx, q)
	return err
}
