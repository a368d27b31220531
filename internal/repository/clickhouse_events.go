package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmoiron/sqlx"
)

// ArchiveRepository appends stream envelopes to the ClickHouse archive.
type ArchiveRepository interface {
	InsertBatch(ctx context.Context, envs []model.Envelope) error
}

type chArchiveRepository struct {
	ch    *sqlx.DB // ClickHouse connection
	table string
}

func NewCHArchiveRepository(ch *sqlx.DB, table string) ArchiveRepository {
	if table == "" {
		table = "events_archive"
	}
	return &chArchiveRepository{ch: ch, table: table}
}

// InsertBatch sends the envelopes as one ClickHouse block (prepare inside a tx).
func (r *chArchiveRepository) InsertBatch(ctx context.Context, envs []model.Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO `+r.table+` (envelope_id, event_id, copy_id, seq, payload, created_at, archived_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range envs {
		if _, err := stmt.ExecContext(ctx, e.ID, e.EventID, e.CopyID, e.Seq, string(e.Payload), e.CreatedAt, now); err != nil {
			return fmt.Errorf("append %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}
