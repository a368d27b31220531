package repository

import (
	"context"
	"math"

	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmoiron/sqlx"
)

// EventsRepository persists pushed events and serves replays.
type EventsRepository interface {
	Insert(ctx context.Context, e model.Event) (int64, error)
	ListSince(ctx context.Context, copyID string, since float64) ([]model.Event, error)
}

type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

var _ EventsRepository = (*EventsRepositoryImpl)(nil)

// seqArg adapts a seq for binding. SQLite keeps infinities as REAL; MySQL
// DOUBLE has no infinity, so they are clamped to the largest finite value.
func (r *EventsRepositoryImpl) seqArg(f float64) float64 {
	if r.db.DriverName() == "mysql" && math.IsInf(f, 0) {
		if f > 0 {
			return math.MaxFloat64
		}
		return -math.MaxFloat64
	}
	return f
}

func (r *EventsRepositoryImpl) Insert(ctx context.Context, e model.Event) (int64, error) {
	if e.Seq.Valid {
		e.Seq.Float64 = r.seqArg(e.Seq.Float64)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (copy_id, seq, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, e.CopyID, e.Seq, e.Payload, e.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSince returns the customer's events with seq >= since in ascending seq
// order. Rows with a NULL seq never match.
func (r *EventsRepositoryImpl) ListSince(ctx context.Context, copyID string, since float64) ([]model.Event, error) {
	rows := make([]model.Event, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, copy_id, seq, payload, created_at
		  FROM events
		 WHERE copy_id = ? AND seq >= ?
		 ORDER BY seq ASC, id ASC
	`, copyID, r.seqArg(since))
	if err != nil {
		return nil, err
	}
	return rows, nil
}
