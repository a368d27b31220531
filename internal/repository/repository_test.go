package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/eventlog/internal/db"
	"github.com/jmehdipour/eventlog/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dbx, err := db.NewSQLiteConnection(filepath.Join(t.TempDir(), "test.sqlite"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })
	require.NoError(t, db.EnsureSchema(context.Background(), dbx))
	return dbx
}

func now() string { return time.Now().UTC().Format(model.TimeLayout) }

func TestCustomers_CreateListGet(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomersRepository(openTestDB(t))

	first, err := repo.Create(ctx, model.Customer{CopyID: "KND-100001", Token: "t1", Name: "a", CreatedAt: now()})
	require.NoError(t, err)
	second, err := repo.Create(ctx, model.Customer{CopyID: "KND-100002", Token: "t2", Email: "b@x", CreatedAt: now()})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "KND-100002", list[0].CopyID)
	assert.Equal(t, "KND-100001", list[1].CopyID)

	c, err := repo.GetByCopyID(ctx, "KND-100001")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "t1", c.Token)
	assert.False(t, c.Blocked)

	missing, err := repo.GetByCopyID(ctx, "KND-999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCustomers_DuplicateCopyID(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomersRepository(openTestDB(t))

	_, err := repo.Create(ctx, model.Customer{CopyID: "KND-123456", Token: "a", CreatedAt: now()})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.Customer{CopyID: "KND-123456", Token: "b", CreatedAt: now()})
	require.Error(t, err)
}

func TestCustomers_BlockAndUpdateToken(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomersRepository(openTestDB(t))

	_, err := repo.Create(ctx, model.Customer{CopyID: "KND-200000", Token: "old", CreatedAt: now()})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateToken(ctx, "KND-200000", "new"))
	require.NoError(t, repo.Block(ctx, "KND-200000"))
	require.NoError(t, repo.Block(ctx, "KND-000000"))

	c, err := repo.GetByCopyID(ctx, "KND-200000")
	require.NoError(t, err)
	assert.Equal(t, "new", c.Token)
	assert.True(t, c.Blocked)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEvents_ListSince(t *testing.T) {
	ctx := context.Background()
	repo := NewEventsRepository(openTestDB(t))

	insert := func(copyID string, seq sql.NullFloat64, payload string) {
		_, err := repo.Insert(ctx, model.Event{CopyID: copyID, Seq: seq, Payload: payload, CreatedAt: now()})
		require.NoError(t, err)
	}
	insert("KND-111111", sql.NullFloat64{Float64: 3, Valid: true}, `{"n":3}`)
	insert("KND-111111", sql.NullFloat64{Float64: 1, Valid: true}, `{"n":1}`)
	insert("KND-111111", sql.NullFloat64{Float64: 2, Valid: true}, `{"n":2}`)
	insert("KND-111111", sql.NullFloat64{}, `{"n":"nan"}`)
	insert("KND-222222", sql.NullFloat64{Float64: 5, Valid: true}, `{}`)

	all, err := repo.ListSince(ctx, "KND-111111", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, float64(i+1), e.Seq.Float64)
	}

	tail, err := repo.ListSince(ctx, "KND-111111", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, `{"n":2}`, tail[0].Payload)

	none, err := repo.ListSince(ctx, "KND-111111", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
