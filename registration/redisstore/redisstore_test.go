package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/regbot/registration"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := Open(context.Background(), Options{URL: "redis://" + mr.Addr(), Prefix: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureInitialized(context.Background()))
	return store, mr
}

func TestEnsureInitializedKeepsData(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
	require.NoError(t, err)
	require.NoError(t, store.EnsureInitialized(ctx))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "name,student_id,guest_count", mr.HGet("{test}:schema", "columns"))
}

func TestRegisterFindUpdate(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.FindByStudentID(ctx, "S123")
	require.ErrorIs(t, err, registration.ErrNotFound)

	rec, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
	require.NoError(t, err)
	assert.Equal(t, registration.Position(1), rec.Position)

	got, err := store.FindByStudentID(ctx, "S123")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, store.UpdateAt(ctx, rec.Position, "Aria3", "5"))
	got, err = store.FindByStudentID(ctx, "S123")
	require.NoError(t, err)
	assert.Equal(t, registration.Record{Name: "Aria3", StudentID: "S123", GuestCount: "5", Position: 1}, got)
	assert.Equal(t, "S123", mr.HGet("{test}:rec:1", "student_id"))
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Register(ctx, registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"})
	require.NoError(t, err)
	_, err = store.Register(ctx, registration.Record{Name: "Other", StudentID: "S123", GuestCount: "1"})
	require.ErrorIs(t, err, registration.ErrDuplicate)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Aria", list[0].Name)
}

func TestRegisterConcurrentSameID(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	const attempts = 10
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Register(ctx, registration.Record{Name: fmt.Sprintf("n%d", i), StudentID: "S1", GuestCount: "0"})
			if err != nil {
				assert.ErrorIs(t, err, registration.ErrDuplicate)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

func TestUpdateAtMissing(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.UpdateAt(context.Background(), 7, "x", "y")
	assert.ErrorIs(t, err, registration.ErrRecordNotFound)
}

func TestListSkipsMissingHashes(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	for _, id := range []string{"C", "A", "B"} {
		_, err := store.Register(ctx, registration.Record{Name: "n" + id, StudentID: id, GuestCount: "1"})
		require.NoError(t, err)
	}
	mr.Del("{test}:rec:2")

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "C", list[0].StudentID)
	assert.Equal(t, registration.Position(3), list[1].Position)

	_, err = store.FindByStudentID(ctx, "A")
	assert.ErrorIs(t, err, registration.ErrNotFound)
}

func TestRegisterReclaimsDanglingIndex(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.Register(ctx, registration.Record{Name: "Old", StudentID: "S1", GuestCount: "1"})
	require.NoError(t, err)
	mr.Del("{test}:rec:1")
	require.True(t, mr.Exists("{test}:sid:S1"))

	_, err = store.FindByStudentID(ctx, "S1")
	require.ErrorIs(t, err, registration.ErrNotFound)

	rec, err := store.Register(ctx, registration.Record{Name: "New", StudentID: "S1", GuestCount: "2"})
	require.NoError(t, err)
	assert.Equal(t, registration.Position(2), rec.Position)

	got, err := store.FindByStudentID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, registration.Position(2), got.Position)

	_, err = store.Register(ctx, registration.Record{Name: "Again", StudentID: "S1", GuestCount: "0"})
	assert.ErrorIs(t, err, registration.ErrDuplicate)
}

func TestKeysShareHashTag(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.Register(ctx, registration.Record{Name: "A", StudentID: "S9", GuestCount: "0"})
	require.NoError(t, err)
	for _, key := range mr.Keys() {
		assert.Contains(t, key, "{test}:")
	}

	custom := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "{shared}bot")
	t.Cleanup(func() { _ = custom.Close() })
	_, err = custom.Register(ctx, registration.Record{Name: "B", StudentID: "S9", GuestCount: "0"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("{shared}bot:sid:S9"))
}

func TestListEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewDefaultsPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := New(client, " ")
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Register(context.Background(), registration.Record{Name: "A", StudentID: "1", GuestCount: "0"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("{"+DefaultPrefix+"}:sid:1"))
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}
