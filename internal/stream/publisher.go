package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmehdipour/eventlog/internal/breaker"
	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/model"
	"go.uber.org/zap"
)

// Publisher fans stored events out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, env model.Envelope)
}

// Nop drops every envelope. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, model.Envelope) {}

// Writer is the subset of kafka.Producer the publisher needs.
type Writer interface {
	Write(ctx context.Context, key, value []byte) error
}

const defaultQueueSize = 1024

type outgoing struct {
	key, value []byte
	envID      string
}

// BrokerPublisher queues envelopes and writes them keyed by copy_id from a
// single background goroutine, so request latency never waits on the broker.
// A full queue drops the envelope. Failures are logged and counted, never
// returned: the event row is already committed.
type BrokerPublisher struct {
	w       Writer
	br      *breaker.Breaker
	timeout time.Duration
	log     *zap.Logger

	queue     chan outgoing
	done      chan struct{}
	closeOnce sync.Once
}

type Options struct {
	Timeout   time.Duration // per write, default 2s
	QueueSize int           // pending envelopes, default 1024
	Log       *zap.Logger
}

func NewBrokerPublisher(w Writer, br *breaker.Breaker, opts Options) *BrokerPublisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	p := &BrokerPublisher{
		w:       w,
		br:      br,
		timeout: opts.Timeout,
		log:     opts.Log,
		queue:   make(chan outgoing, opts.QueueSize),
		done:    make(chan struct{}),
	}
	br.OnStateChange(func(from, to breaker.State) {
		if to == breaker.Closed {
			metrics.PublishBreakerOpen.Set(0)
		} else {
			metrics.PublishBreakerOpen.Set(1)
		}
		p.log.Info("publish breaker", zap.Stringer("from", from), zap.Stringer("to", to))
	})

	go p.loop()
	return p
}

func (p *BrokerPublisher) Publish(_ context.Context, env model.Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("publish_failed").Inc()
		p.log.Warn("marshal envelope", zap.String("envelope_id", env.ID), zap.Error(err))
		return
	}

	select {
	case p.queue <- outgoing{key: []byte(env.CopyID), value: b, envID: env.ID}:
	default:
		metrics.EventsTotal.WithLabelValues("publish_dropped").Inc()
		p.log.Warn("publish queue full", zap.String("envelope_id", env.ID))
	}
}

// Close stops accepting work and waits for queued envelopes to be written or
// for ctx to end. Publish must not be called after Close.
func (p *BrokerPublisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.queue) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BrokerPublisher) loop() {
	defer close(p.done)
	for o := range p.queue {
		p.send(o)
	}
}

func (p *BrokerPublisher) send(o outgoing) {
	if !p.br.Allow() {
		metrics.EventsTotal.WithLabelValues("publish_skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	err := p.w.Write(ctx, o.key, o.value)
	cancel()
	if err != nil {
		p.br.OnFailure()
		metrics.EventsTotal.WithLabelValues("publish_failed").Inc()
		p.log.Warn("publish event",
			zap.String("envelope_id", o.envID),
			zap.ByteString("copy_id", o.key),
			zap.Error(err),
		)
		return
	}

	p.br.OnSuccess()
	metrics.EventsTotal.WithLabelValues("published").Inc()
}
