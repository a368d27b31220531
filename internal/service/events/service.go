package events

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmehdipour/eventlog/internal/repository"
	"github.com/jmehdipour/eventlog/internal/stream"
	"github.com/jmehdipour/eventlog/internal/util"
)

var ErrInvalidBody = errors.New("invalid json body")

const seqField = "seq"

// Service stores pushed events and replays them.
type Service struct {
	repo repository.EventsRepository
	pub  stream.Publisher
	now  func() time.Time
}

func New(repo repository.EventsRepository, pub stream.Publisher) *Service {
	if pub == nil {
		pub = stream.Nop{}
	}
	return &Service{repo: repo, pub: pub, now: time.Now}
}

// Push stores one event. body is the raw request body: a JSON object (or an
// array, read as an object keyed by index) whose "seq" member (default 0)
// becomes the event seq and whose other members become the payload.
func (s *Service) Push(ctx context.Context, copyID string, body []byte) error {
	fields, err := decodeObject(body)
	if err != nil {
		return err
	}

	// NaN has no order, so it is stored as NULL; infinities are kept.
	seq := sql.NullFloat64{Float64: 0, Valid: true}
	if raw, ok := fields[seqField]; ok {
		n := util.ToNumber(raw)
		seq = sql.NullFloat64{Float64: n, Valid: !math.IsNaN(n)}
	}
	delete(fields, seqField)

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ev := model.Event{
		CopyID:    copyID,
		Seq:       seq,
		Payload:   string(payload),
		CreatedAt: s.now().UTC().Format(model.TimeLayout),
	}
	id, err := s.repo.Insert(ctx, ev)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	metrics.EventsTotal.WithLabelValues("stored").Inc()

	env := model.Envelope{
		ID:        util.New(),
		EventID:   id,
		CopyID:    copyID,
		Payload:   payload,
		CreatedAt: ev.CreatedAt,
	}
	if seq.Valid && util.IsFinite(seq.Float64) {
		v := seq.Float64
		env.Seq = &v
	}
	s.pub.Publish(ctx, env)

	return nil
}

// Replay returns the customer's events with seq >= since, ascending. Each item
// is the stored payload merged with seq and created_at; created_at wins over a
// payload member of the same name.
func (s *Service) Replay(ctx context.Context, copyID string, since float64) ([]map[string]any, error) {
	out := make([]map[string]any, 0)
	if math.IsNaN(since) {
		return out, nil
	}

	rows, err := s.repo.ListSince(ctx, copyID, since)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	for _, r := range rows {
		// infinite seqs render as null, the way JSON has no infinity
		var seq any
		if util.IsFinite(r.Seq.Float64) {
			seq = r.Seq.Float64
		}
		item := map[string]any{seqField: seq}
		payload, err := decodeObject([]byte(r.Payload))
		if err != nil {
			return nil, fmt.Errorf("decode payload of event %d: %w", r.ID, err)
		}
		for k, v := range payload {
			item[k] = v
		}
		item["created_at"] = r.CreatedAt
		out = append(out, item)
	}
	return out, nil
}

// decodeObject parses a JSON object, keeping numbers as json.Number so
// payloads round-trip without float rounding. Empty input is an empty object
// and an array becomes an object keyed by element index. Other top-level
// values are rejected.
func decodeObject(b []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return make(map[string]any), nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrInvalidBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrInvalidBody
	}

	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case []any:
		fields := make(map[string]any, len(x))
		for i, el := range x {
			fields[strconv.Itoa(i)] = el
		}
		return fields, nil
	default:
		return nil, ErrInvalidBody
	}
}
