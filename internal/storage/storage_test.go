package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestGetSessionEmpty(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSession(context.Background())
	require.ErrorIs(t, err, ErrNoRows)
}

func TestSaveAndRestoreSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	saved := &SavedSession{SID: "sid-1", UserID: "alice", Nickname: "Alice", LastRoom: 7}
	require.NoError(t, store.SaveSession(ctx, saved))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "sid-1", got.SID)
	require.Equal(t, "alice", got.UserID)
	require.Equal(t, "Alice", got.Nickname)
	require.Equal(t, int64(7), got.LastRoom)
	require.False(t, got.SavedAt.IsZero())
}

func TestSaveSessionOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &SavedSession{SID: "old", UserID: "alice"}))
	require.NoError(t, store.SaveSession(ctx, &SavedSession{SID: "new", UserID: "bob"}))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", got.SID)
	require.Equal(t, "bob", got.UserID)
}

func TestSetLastRoom(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &SavedSession{SID: "sid-1", UserID: "alice"}))
	require.NoError(t, store.SetLastRoom(ctx, 42))

	got, err := store.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.LastRoom)
}

func TestDeleteSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, &SavedSession{SID: "sid-1", UserID: "alice"}))
	require.NoError(t, store.DeleteSession(ctx))

	_, err := store.GetSession(ctx)
	require.ErrorIs(t, err, ErrNoRows)

	// deleting again is harmless
	require.NoError(t, store.DeleteSession(ctx))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Migrate())
}
