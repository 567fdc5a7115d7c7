package db

import (
	"adventcal/models"
	"adventcal/utils"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the DocumentStore behaviour every backend must share.
func runStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, CollectionCalendars, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, store.Delete(ctx, CollectionCalendars, "nope"), ErrNotFound)
	})

	t.Run("calendar round trip", func(t *testing.T) {
		cal := testCalendar("cal1", "creator", "Ada", time.Date(2025, time.November, 20, 10, 0, 0, 0, time.UTC))
		at := time.Date(2025, time.December, 1, 6, 0, 0, 42000, time.UTC)
		cal.UpdateDoor(models.NewDoor(1, models.ContentText, strPtr("hello"), nil, true, &at))

		require.NoError(t, store.Set(ctx, CollectionCalendars, cal.ID, cal.ToRecord()))

		rec, err := store.Get(ctx, CollectionCalendars, cal.ID)
		require.NoError(t, err)
		got, ok := models.CalendarFromRecord(rec, cal.ID)
		require.True(t, ok)
		assert.Equal(t, cal, got)
	})

	t.Run("user round trip", func(t *testing.T) {
		user := models.NewUser("u1", strPtr("Ada"), []string{"c1"}, []string{"r1", "r2"})
		require.NoError(t, store.Set(ctx, CollectionUsers, user.UID, user.ToRecord()))

		rec, err := store.Get(ctx, CollectionUsers, user.UID)
		require.NoError(t, err)
		assert.Equal(t, user, models.UserFromRecord(rec, user.UID))
	})

	t.Run("set replaces", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, CollectionUsers, "u2", models.Record{"uid": "u2", "display_name": "a"}))
		require.NoError(t, store.Set(ctx, CollectionUsers, "u2", models.Record{"uid": "u2"}))

		rec, err := store.Get(ctx, CollectionUsers, "u2")
		require.NoError(t, err)
		assert.NotContains(t, rec, "display_name")
	})

	t.Run("list and delete", func(t *testing.T) {
		things := "things_" + utils.GenerateDashlessUUID()
		require.NoError(t, store.Set(ctx, things, "b", models.Record{"n": 2}))
		require.NoError(t, store.Set(ctx, things, "a", models.Record{"n": 1}))

		docs, err := store.List(ctx, things)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ID)
		assert.Equal(t, int64(1), docs[0].Data["n"])

		require.NoError(t, store.Delete(ctx, things, "a"))
		docs, err = store.List(ctx, things)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "b", docs[0].ID)
	})

	t.Run("collections are independent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "left", "same", models.Record{"side": "left"}))
		_, err := store.Get(ctx, "right", "same")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFileStore_Contract(t *testing.T) {
	fs, _ := setupFileStore(t)
	runStoreContract(t, fs)
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, setupSQLiteStore(t))
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("ADVENT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ADVENT_TEST_POSTGRES_DSN not set")
	}
	store, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	runStoreContract(t, store)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, CollectionUsers, "u", models.Record{"uid": "u"}))
	_, err = store.Get(ctx, CollectionUsers, "u")
	assert.NoError(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/reopen.db"

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, CollectionUsers, "u", models.Record{"uid": "u"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	rec, err := reopened.Get(ctx, CollectionUsers, "u")
	require.NoError(t, err)
	assert.Equal(t, "u", rec["uid"])
}
