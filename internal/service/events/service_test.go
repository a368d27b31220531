package events

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/eventlog/internal/db"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmehdipour/eventlog/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	envs []model.Envelope
}

func (r *recordingPublisher) Publish(_ context.Context, env model.Envelope) {
	r.envs = append(r.envs, env)
}

func newService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	dbx, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "events.sqlite"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })
	require.NoError(t, db.EnsureSchema(context.Background(), dbx))

	pub := &recordingPublisher{}
	return New(repository.NewEventsRepository(dbx), pub), pub
}

func TestPushReplay_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":5,"x":1}`)))

	got, err := svc.Replay(ctx, "KND-100000", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0]["seq"])
	assert.Equal(t, json.Number("1"), got[0]["x"])
	assert.NotEmpty(t, got[0]["created_at"])
	assert.Len(t, got[0], 3)

	require.Len(t, pub.envs, 1)
	assert.Equal(t, "KND-100000", pub.envs[0].CopyID)
	assert.JSONEq(t, `{"x":1}`, string(pub.envs[0].Payload))
	require.NotNil(t, pub.envs[0].Seq)
	assert.Equal(t, 5.0, *pub.envs[0].Seq)
}

func TestPush_SeqCoercion(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"a":1}`)))
	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":"7","a":2}`)))
	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":"abc","a":3}`)))
	require.NoError(t, svc.Push(ctx, "KND-100000", nil))

	got, err := svc.Replay(ctx, "KND-100000", 0)
	require.NoError(t, err)
	require.Len(t, got, 3, "the non-numeric seq is stored but never replayed")
	assert.Equal(t, 0.0, got[0]["seq"])
	assert.Equal(t, 0.0, got[1]["seq"])
	assert.Equal(t, 7.0, got[2]["seq"])

	require.Len(t, pub.envs, 4)
	assert.Nil(t, pub.envs[2].Seq)
}

func TestReplay_OrderAndBounds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	for _, body := range []string{`{"seq":3}`, `{"seq":1}`, `{"seq":2}`} {
		require.NoError(t, svc.Push(ctx, "KND-100000", []byte(body)))
	}
	require.NoError(t, svc.Push(ctx, "KND-200000", []byte(`{"seq":9}`)))

	got, err := svc.Replay(ctx, "KND-100000", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0]["seq"])
	assert.Equal(t, 3.0, got[1]["seq"])

	empty, err := svc.Replay(ctx, "KND-100000", 4)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	nan, err := svc.Replay(ctx, "KND-100000", math.NaN())
	require.NoError(t, err)
	assert.Empty(t, nan)

	all, err := svc.Replay(ctx, "KND-100000", math.Inf(-1))
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReplay_CreatedAtOverridesPayload(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":1,"created_at":"spoofed"}`)))

	got, err := svc.Replay(ctx, "KND-100000", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEqual(t, "spoofed", got[0]["created_at"])
}

func TestPush_InfiniteSeqKept(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":1e400,"a":"big"}`)))
	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`{"seq":"-Infinity","a":"small"}`)))

	got, err := svc.Replay(ctx, "KND-100000", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "big", got[0]["a"])
	assert.Nil(t, got[0]["seq"])

	all, err := svc.Replay(ctx, "KND-100000", math.Inf(-1))
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "small", all[0]["a"])

	top, err := svc.Replay(ctx, "KND-100000", math.Inf(1))
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "big", top[0]["a"])

	raw, err := json.Marshal(all)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"seq":null`)

	require.Len(t, pub.envs, 2)
	assert.Nil(t, pub.envs[0].Seq)
}

func TestPush_ArrayBody(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	require.NoError(t, svc.Push(ctx, "KND-100000", []byte(`["a",{"b":2}]`)))

	got, err := svc.Replay(ctx, "KND-100000", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0]["seq"])
	assert.Equal(t, "a", got[0]["0"])
	assert.Equal(t, map[string]any{"b": json.Number("2")}, got[0]["1"])
}

func TestPush_InvalidBody(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	for _, body := range []string{`"text"`, `5`, `null`, `{"seq":1`, `{} {}`} {
		err := svc.Push(ctx, "KND-100000", []byte(body))
		assert.ErrorIs(t, err, ErrInvalidBody, body)
	}
	assert.Empty(t, pub.envs)
}
