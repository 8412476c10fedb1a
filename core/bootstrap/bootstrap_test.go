package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/regbot/core/config"
	coredatabase "github.com/m3rciful/regbot/core/database"
	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
	"github.com/m3rciful/regbot/registration/workbook"
)

func noLogger(*logger.Config) error { return nil }

func writeWorkbook(t *testing.T, recs ...registration.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old.xlsx")
	src, err := workbook.New(workbook.Options{Path: path})
	require.NoError(t, err)
	require.NoError(t, src.EnsureInitialized(context.Background()))
	for _, r := range recs {
		_, err := src.Register(context.Background(), r)
		require.NoError(t, err)
	}
	return path
}

func TestRunWorkbookCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graduation_data.xlsx")
	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{Driver: coreconfig.DriverWorkbook, Path: path}}

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Store.Close() })

	assert.FileExists(t, path)
	list, err := res.Store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunSQLiteImportsWorkbook(t *testing.T) {
	ctx := context.Background()
	src := writeWorkbook(t,
		registration.Record{Name: "Aria", StudentID: "S123", GuestCount: "2"},
		registration.Record{Name: "Babak", StudentID: "S200", GuestCount: "نامشخص"},
	)
	dbPath := filepath.Join(t.TempDir(), "reg.db")
	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{
		Driver:         coreconfig.DriverSQLite,
		Path:           dbPath,
		ImportWorkbook: src,
		Database:       coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: dbPath},
	}}

	res, err := Run(ctx, Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	list, err := res.Store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "S123", list[0].StudentID)
	assert.Equal(t, "نامشخص", list[1].GuestCount)
	require.NoError(t, res.Store.Close())

	// A second start skips rows already imported.
	res, err = Run(ctx, Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Store.Close() })
	list, err = res.Store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRunRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{Driver: coreconfig.DriverRedis, RedisURL: "redis://" + mr.Addr()}}

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Store.Close() })

	rec, err := res.Store.Register(context.Background(), registration.Record{Name: "A", StudentID: "1", GuestCount: "0"})
	require.NoError(t, err)
	assert.Equal(t, registration.Position(1), rec.Position)
}

func TestRunStopsOnSeederError(t *testing.T) {
	cfg := &coreconfig.Config{Store: coreconfig.StoreConfig{Driver: coreconfig.DriverWorkbook, Path: filepath.Join(t.TempDir(), "x.xlsx")}}
	boom := errors.New("boom")

	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Seeders: []Seeder{SeederFunc(func(context.Context, registration.Store) error {
			return boom
		})},
	})
	assert.ErrorIs(t, err, boom)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), coreconfig.StoreConfig{Driver: "csv"})
	var cfgErr *coreconfig.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
