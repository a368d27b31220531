package model

import (
	"database/sql"
	"encoding/json"
)

// TimeLayout is the text layout of every created_at column.
const TimeLayout = "2006-01-02 15:04:05"

// Event is one stored row of the events table.
type Event struct {
	ID        int64           `db:"id"`
	CopyID    string          `db:"copy_id"`
	Seq       sql.NullFloat64 `db:"seq"` // NULL when the pushed seq was not a finite number
	Payload   string          `db:"payload"`
	CreatedAt string          `db:"created_at"`
}

// Envelope is the stream representation of a stored event.
type Envelope struct {
	ID        string          `json:"id"` // ULID
	EventID   int64           `json:"event_id"`
	CopyID    string          `json:"copy_id"`
	Seq       *float64        `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}
