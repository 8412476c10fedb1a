package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
	"github.com/m3rciful/regbot/registration/workbook"
)

// Seeder loads existing data into a freshly initialized store.
type Seeder interface {
	Seed(ctx context.Context, store registration.Store) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, store registration.Store) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, store registration.Store) error {
	return f(ctx, store)
}

// WorkbookImport copies every row of an existing workbook into the store.
// Student ids already present are skipped, so the import can run on every start.
func WorkbookImport(opts workbook.Options) Seeder {
	return SeederFunc(func(ctx context.Context, store registration.Store) error {
		start := time.Now()
		src, err := workbook.New(opts)
		if err != nil {
			return err
		}
		rows, err := src.List(ctx)
		if err != nil {
			return fmt.Errorf("import %s: %w", opts.Path, err)
		}

		imported, skipped := 0, 0
		for _, rec := range rows {
			if strings.TrimSpace(rec.StudentID) == "" {
				skipped++
				continue
			}
			_, err := store.Register(ctx, registration.Record{
				Name:       rec.Name,
				StudentID:  rec.StudentID,
				GuestCount: rec.GuestCount,
			})
			switch {
			case errors.Is(err, registration.ErrDuplicate):
				skipped++
			case err != nil:
				return fmt.Errorf("import %s row %s: %w", opts.Path, rec.Position, err)
			default:
				imported++
			}
		}
		logger.SEED.LogAttrs(ctx, slog.LevelInfo, "workbook imported",
			slog.String("event", "seed.workbook"),
			slog.String("path", opts.Path),
			slog.Int("imported", imported),
			slog.Int("skipped", skipped),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil
	})
}
