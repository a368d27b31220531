package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/eventlog/internal/kafka"
	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmehdipour/eventlog/internal/repository"
	"go.uber.org/zap"
)

// Source is the consumer side of the events topic.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Archiver:
// - fetches event envelopes from Kafka,
// - buffers them and writes batches to the ClickHouse archive,
// - commits offsets only after a batch is stored (at-least-once).
type Archiver struct {
	Source  Source
	Archive repository.ArchiveRepository
	Log     *zap.Logger

	BatchSize  int           // max buffered envelopes per flush
	BatchWait  time.Duration // max time to wait before flush; first retry delay
	MaxBackoff time.Duration // cap on the delay between retries of a failed batch
}

func NewArchiver(src Source, archive repository.ArchiveRepository, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		Source:    src,
		Archive:   archive,
		Log:       log,
		BatchSize:  500,
		BatchWait:  time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled, flushing whatever is buffered on the way out.
func (a *Archiver) Run(ctx context.Context) error {
	if a.Source == nil || a.Archive == nil {
		return errors.New("archiver: missing source or archive")
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 500
	}
	if a.BatchWait <= 0 {
		a.BatchWait = time.Second
	}
	if a.MaxBackoff < a.BatchWait {
		a.MaxBackoff = a.BatchWait
	}

	msgCh := make(chan kafka.Message, a.BatchSize)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := a.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				a.Log.Warn("kafka fetch", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.runBatchWriter(ctx, msgCh)
	return nil
}

type batch struct {
	envs []model.Envelope
	msgs []kafka.Message // every fetched message, poison included, for the commit
}

func (b *batch) reset() {
	b.envs = b.envs[:0]
	b.msgs = b.msgs[:0]
}

// runBatchWriter does size/time-based flushes until in is closed. While a
// failed batch is pending it stops reading, so the buffer never exceeds
// BatchSize and unread messages stay in Kafka.
func (a *Archiver) runBatchWriter(ctx context.Context, in <-chan kafka.Message) {
	tick := time.NewTicker(a.BatchWait)
	defer tick.Stop()

	var b batch
	for {
		select {
		case m, ok := <-in:
			if !ok {
				a.flush(context.WithoutCancel(ctx), &b)
				return
			}
			a.add(&b, m)
			if len(b.msgs) >= a.BatchSize && !a.flushUntilStored(ctx, &b) {
				return
			}

		case <-tick.C:
			if !a.flushUntilStored(ctx, &b) {
				return
			}
		}
	}
}

// flushUntilStored retries b with exponential backoff. It returns false if ctx
// ends first; the batch stays uncommitted and is redelivered on restart.
func (a *Archiver) flushUntilStored(ctx context.Context, b *batch) bool {
	backoff := a.BatchWait
	for !a.flush(ctx, b) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, a.MaxBackoff)
	}
	return true
}

func (a *Archiver) add(b *batch, m kafka.Message) {
	b.msgs = append(b.msgs, m)

	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
		// poison: committed with the batch, never archived
		if err != nil {
			a.Log.Warn("bad envelope json", zap.Int64("offset", m.Offset), zap.Error(err))
		} else {
			a.Log.Warn("envelope missing id", zap.Int64("offset", m.Offset))
		}
		return
	}
	b.envs = append(b.envs, env)
}

// flush writes the batch and commits its offsets. It reports false when the
// write failed and the batch was kept.
func (a *Archiver) flush(ctx context.Context, b *batch) bool {
	if len(b.msgs) == 0 {
		return true
	}

	if err := a.Archive.InsertBatch(ctx, b.envs); err != nil {
		metrics.ArchiveFlushFailuresTotal.Inc()
		a.Log.Error("archive batch", zap.Int("size", len(b.envs)), zap.Error(err))
		return false
	}
	metrics.EventsTotal.WithLabelValues("archived").Add(float64(len(b.envs)))

	if err := a.Source.Commit(ctx, b.msgs...); err != nil {
		a.Log.Error("kafka commit", zap.Error(err))
	}

	a.Log.Debug("archived batch", zap.Int("envelopes", len(b.envs)), zap.Int("messages", len(b.msgs)))
	b.reset()
	return true
}
