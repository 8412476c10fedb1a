package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/regbot/core/database"
	"github.com/m3rciful/regbot/registration"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "reg.db")}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	store := New(db, cfg)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureInitialized(context.Background()))
	return store
}

// newPostgresStore connects to the database named by REGBOT_TEST_POSTGRES_DSN,
// a postgres:// URL, and truncates the attendees table.
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	raw := os.Getenv("REGBOT_TEST_POSTGRES_DSN")
	if raw == "" {
		t.Skip("REGBOT_TEST_POSTGRES_DSN not set")
	}
	cfg, err := database.FromURL(raw)
	require.NoError(t, err)
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	store := New(db, cfg)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureInitialized(context.Background()))
	_, err = db.Exec(`TRUNCATE attendees RESTART IDENTITY`)
	require.NoError(t, err)
	return store
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store *Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, newPostgresStore(t)) })
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		_, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
		require.NoError(t, err)

		require.NoError(t, store.EnsureInitialized(ctx))

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestRegisterFindUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()

		_, err := store.FindByStudentID(ctx, "S123")
		require.ErrorIs(t, err, registration.ErrNotFound)

		rec, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
		require.NoError(t, err)
		assert.NotZero(t, rec.Position)

		got, err := store.FindByStudentID(ctx, "S123")
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		require.NoError(t, store.UpdateAt(ctx, rec.Position, "Aria3", "5"))
		got, err = store.FindByStudentID(ctx, "S123")
		require.NoError(t, err)
		assert.Equal(t, registration.Record{Name: "Aria3", StudentID: "S123", GuestCount: "5", Position: rec.Position}, got)
	})
}

func TestRegisterDuplicate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		_, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
		require.NoError(t, err)

		_, err = store.Register(ctx, registration.Record{Name: "Other", StudentID: "S123", GuestCount: "1"})
		require.ErrorIs(t, err, registration.ErrDuplicate)

		got, err := store.FindByStudentID(ctx, "S123")
		require.NoError(t, err)
		assert.Equal(t, "Aria", got.Name)
	})
}

func TestRegisterConcurrentSameID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		const attempts = 10
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.Register(ctx, registration.Record{Name: fmt.Sprintf("n%d", i), StudentID: "S1", GuestCount: "0"})
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, registration.ErrDuplicate)
		}
		assert.Equal(t, 1, succeeded)

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestUpdateAtMissingRow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		err := store.UpdateAt(context.Background(), 4242, "x", "y")
		assert.ErrorIs(t, err, registration.ErrRecordNotFound)
	})
}

func TestListRegistrationOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store *Store) {
		ctx := context.Background()
		for _, id := range []string{"C", "A", "B"} {
			_, err := store.Register(ctx, registration.Record{Name: "n" + id, StudentID: id, GuestCount: "نامشخص"})
			require.NoError(t, err)
		}
		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"C", "A", "B"}, []string{list[0].StudentID, list[1].StudentID, list[2].StudentID})
		assert.Equal(t, "نامشخص", list[0].GuestCount)
	})
}
