package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/eventlog/internal/kafka"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (f *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeSource) Commit(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeSource) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeArchive struct {
	mu       sync.Mutex
	failures int
	calls    int
	maxBatch int
	stored   []model.Envelope
}

func (f *fakeArchive) InsertBatch(_ context.Context, envs []model.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.maxBatch = max(f.maxBatch, len(envs))
	if f.failures > 0 {
		f.failures--
		return errors.New("clickhouse unavailable")
	}
	f.stored = append(f.stored, envs...)
	return nil
}

func (f *fakeArchive) storedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.stored))
	for _, e := range f.stored {
		ids = append(ids, e.ID)
	}
	return ids
}

func envelopeMsg(t *testing.T, offset int64, id string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(model.Envelope{ID: id, CopyID: "KND-100000", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func runArchiver(t *testing.T, a *Archiver, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, until, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("archiver did not stop")
	}
}

func TestArchiver_StoresAndCommits(t *testing.T) {
	src := &fakeSource{pending: []kafka.Message{
		envelopeMsg(t, 1, "a"),
		{Offset: 2, Value: []byte("not json")},
		envelopeMsg(t, 3, "b"),
		envelopeMsg(t, 4, "c"),
	}}
	archive := &fakeArchive{}

	a := NewArchiver(src, archive, nil)
	a.BatchSize = 2
	a.BatchWait = 20 * time.Millisecond

	runArchiver(t, a, func() bool { return src.committedCount() == 4 })

	assert.Equal(t, []string{"a", "b", "c"}, archive.storedIDs())
}

func TestArchiver_RetriesFailedBatch(t *testing.T) {
	src := &fakeSource{pending: []kafka.Message{
		envelopeMsg(t, 1, "a"),
		envelopeMsg(t, 2, "b"),
	}}
	archive := &fakeArchive{failures: 2}

	a := NewArchiver(src, archive, nil)
	a.BatchSize = 10
	a.BatchWait = 10 * time.Millisecond

	runArchiver(t, a, func() bool { return src.committedCount() == 2 })

	assert.Equal(t, []string{"a", "b"}, archive.storedIDs())
}

func TestArchiver_OutageHoldsBatchBounded(t *testing.T) {
	const total = 20
	msgs := make([]kafka.Message, 0, total)
	for i := 0; i < total; i++ {
		msgs = append(msgs, envelopeMsg(t, int64(i), fmt.Sprintf("e%02d", i)))
	}
	src := &fakeSource{pending: msgs}
	archive := &fakeArchive{failures: 6}

	a := NewArchiver(src, archive, nil)
	a.BatchSize = 2
	a.BatchWait = 5 * time.Millisecond
	a.MaxBackoff = 10 * time.Millisecond

	runArchiver(t, a, func() bool { return src.committedCount() == total })

	archive.mu.Lock()
	defer archive.mu.Unlock()
	assert.LessOrEqual(t, archive.maxBatch, a.BatchSize)
	// each failure retries the same batch; every success stores at least one envelope
	assert.LessOrEqual(t, archive.calls, 6+total)
	assert.Len(t, archive.stored, total)
}

func TestArchiver_RequiresDependencies(t *testing.T) {
	err := (&Archiver{}).Run(context.Background())
	assert.Error(t, err)
}
