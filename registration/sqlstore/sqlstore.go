// Package sqlstore keeps attendee records in a SQL table through sqlx. It
// serves both PostgreSQL and SQLite; the record position is the row id.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/regbot/core/database"
	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
)

type attendeeRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	StudentID  string `db:"student_id"`
	GuestCount string `db:"guest_count"`
}

func (r attendeeRow) record() registration.Record {
	return registration.Record{
		Name:       r.Name,
		StudentID:  r.StudentID,
		GuestCount: r.GuestCount,
		Position:   registration.Position(r.ID),
	}
}

// Store is a registration.Store over an attendees table.
type Store struct {
	db      *sqlx.DB
	cfg     database.Config
	migrate func(database.Config) error
}

var _ registration.Store = (*Store)(nil)

// New wraps an open connection. cfg must describe the same database; it is
// used to run migrations in EnsureInitialized.
func New(db *sqlx.DB, cfg database.Config) *Store {
	return &Store{db: db, cfg: cfg, migrate: database.RunMigrations}
}

// EnsureInitialized applies pending schema migrations. Existing rows are never touched.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.migrate(s.cfg); err != nil {
		return fmt.Errorf("sqlstore: ensure schema: %w", err)
	}
	return nil
}

// FindByStudentID returns the earliest record with the given student id.
func (s *Store) FindByStudentID(ctx context.Context, id string) (registration.Record, error) {
	start := time.Now()
	var row attendeeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, name, student_id, guest_count
		FROM attendees
		WHERE student_id = ?
		ORDER BY id
		LIMIT 1`), id)
	found := err == nil
	logger.Debug(ctx, "store", "store.find",
		slog.String("backend", s.cfg.Driver),
		slog.String("student_id", id),
		slog.Bool("found", found),
		slog.Duration("duration", logger.Took(start)),
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return registration.Record{}, registration.ErrNotFound
	case err != nil:
		return registration.Record{}, fmt.Errorf("sqlstore: find %q: %w", id, err)
	}
	return row.record(), nil
}

// Register inserts rec in a single statement. The unique constraint on
// student_id turns a concurrent duplicate into a no-op insert, reported as
// registration.ErrDuplicate.
func (s *Store) Register(ctx context.Context, rec registration.Record) (registration.Record, error) {
	start := time.Now()
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO attendees (name, student_id, guest_count)
		VALUES (?, ?, ?)
		ON CONFLICT (student_id) DO NOTHING
		RETURNING id`), rec.Name, rec.StudentID, rec.GuestCount).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return registration.Record{}, registration.ErrDuplicate
	case err != nil:
		return registration.Record{}, fmt.Errorf("sqlstore: register %q: %w", rec.StudentID, err)
	}
	rec.Position = registration.Position(id)
	logger.Debug(ctx, "store", "store.register",
		slog.String("backend", s.cfg.Driver),
		slog.String("student_id", rec.StudentID),
		slog.String("position", rec.Position.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// UpdateAt rewrites name and guest count of the row with id pos.
func (s *Store) UpdateAt(ctx context.Context, pos registration.Position, name, guestCount string) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE attendees
		SET name = ?, guest_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`), name, guestCount, int64(pos))
	if err != nil {
		return fmt.Errorf("sqlstore: update %s: %w", pos, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: update %s: %w", pos, err)
	}
	if n == 0 {
		return registration.ErrRecordNotFound
	}
	logger.Debug(ctx, "store", "store.update",
		slog.String("backend", s.cfg.Driver),
		slog.String("position", pos.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// List returns all records ordered by id.
func (s *Store) List(ctx context.Context) ([]registration.Record, error) {
	var rows []attendeeRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, student_id, guest_count
		FROM attendees
		ORDER BY id`); err != nil {
		return nil, fmt.Errorf("sqlstore: list: %w", err)
	}
	out := make([]registration.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
