// Package redisstore keeps attendee records in Redis. Each record is a hash
// addressed by its position, with a student-id index next to it. Registration
// and update run as Lua scripts so the check and the write are one server-side step.
//
// The register script derives the record key from the sequence it increments,
// so that key cannot be declared up front. All keys share the hash tag
// "{prefix}" and therefore one cluster slot; the store is still meant for a
// single Redis node or a primary with replicas.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/registration"
)

const (
	// DefaultPrefix namespaces every key written by the store.
	DefaultPrefix = "regbot"

	fieldName       = "name"
	fieldStudentID  = "student_id"
	fieldGuestCount = "guest_count"
)

// KEYS[1] student-id index key, KEYS[2] sequence key.
// ARGV[1] record key prefix, ARGV[2..4] name, student id, guest count.
// An index entry whose record hash is gone (evicted or deleted) does not
// block the id; it is overwritten.
var registerScript = redis.NewScript(`
local indexed = redis.call('GET', KEYS[1])
if indexed and redis.call('EXISTS', ARGV[1] .. indexed) == 1 then
	return 0
end
local pos = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[1] .. pos, 'name', ARGV[2], 'student_id', ARGV[3], 'guest_count', ARGV[4])
redis.call('SET', KEYS[1], pos)
return pos
`)

// KEYS[1] record key. ARGV[1] name, ARGV[2] guest count.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'name', ARGV[1], 'guest_count', ARGV[2])
return 1
`)

// Options configures a Redis-backed store.
type Options struct {
	URL string
	// Prefix is wrapped in braces to form the hash tag of every key unless
	// it already contains one.
	Prefix string
}

// Store is a registration.Store backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ registration.Store = (*Store)(nil)

// Open parses opts.URL, connects, and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("redisstore: url is required")
	}
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: hashTag(prefix)}
}

// hashTag wraps prefix in braces unless it already carries a hash tag.
func hashTag(prefix string) string {
	if strings.Contains(prefix, "{") {
		return prefix
	}
	return "{" + prefix + "}"
}

func (s *Store) seqKey() string              { return s.prefix + ":seq" }
func (s *Store) schemaKey() string           { return s.prefix + ":schema" }
func (s *Store) recordPrefix() string        { return s.prefix + ":rec:" }
func (s *Store) studentKey(id string) string { return s.prefix + ":sid:" + id }
func (s *Store) recordKey(pos registration.Position) string {
	return s.recordPrefix() + pos.String()
}

// EnsureInitialized records the column layout once; existing data is left alone.
func (s *Store) EnsureInitialized(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisstore: ping: %w", err)
	}
	created, err := s.client.HSetNX(ctx, s.schemaKey(), "columns", strings.Join(registration.Columns[:], ",")).Result()
	if err != nil {
		return fmt.Errorf("redisstore: write schema: %w", err)
	}
	if created {
		logger.Info(ctx, "store", "store.created",
			slog.String("backend", "redis"),
			slog.String("prefix", s.prefix),
		)
	}
	return nil
}

// FindByStudentID resolves the student-id index and loads the record hash.
func (s *Store) FindByStudentID(ctx context.Context, id string) (registration.Record, error) {
	start := time.Now()
	raw, err := s.client.Get(ctx, s.studentKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		s.logFind(ctx, id, false, start)
		return registration.Record{}, registration.ErrNotFound
	}
	if err != nil {
		return registration.Record{}, fmt.Errorf("redisstore: find %q: %w", id, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return registration.Record{}, fmt.Errorf("redisstore: corrupt index for %q: %w", id, err)
	}
	pos := registration.Position(n)
	fields, err := s.client.HGetAll(ctx, s.recordKey(pos)).Result()
	if err != nil {
		return registration.Record{}, fmt.Errorf("redisstore: load %s: %w", pos, err)
	}
	if len(fields) == 0 {
		s.logFind(ctx, id, false, start)
		return registration.Record{}, registration.ErrNotFound
	}
	s.logFind(ctx, id, true, start)
	return toRecord(fields, pos), nil
}

// Register inserts rec unless its student id is indexed.
func (s *Store) Register(ctx context.Context, rec registration.Record) (registration.Record, error) {
	start := time.Now()
	pos, err := registerScript.Run(ctx, s.client,
		[]string{s.studentKey(rec.StudentID), s.seqKey()},
		s.recordPrefix(), rec.Name, rec.StudentID, rec.GuestCount,
	).Int64()
	if err != nil {
		return registration.Record{}, fmt.Errorf("redisstore: register %q: %w", rec.StudentID, err)
	}
	if pos == 0 {
		return registration.Record{}, registration.ErrDuplicate
	}
	rec.Position = registration.Position(pos)
	logger.Debug(ctx, "store", "store.register",
		slog.String("backend", "redis"),
		slog.String("student_id", rec.StudentID),
		slog.String("position", rec.Position.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return rec, nil
}

// UpdateAt rewrites name and guest count of the record hash at pos.
func (s *Store) UpdateAt(ctx context.Context, pos registration.Position, name, guestCount string) error {
	start := time.Now()
	ok, err := updateScript.Run(ctx, s.client, []string{s.recordKey(pos)}, name, guestCount).Int64()
	if err != nil {
		return fmt.Errorf("redisstore: update %s: %w", pos, err)
	}
	if ok == 0 {
		return registration.ErrRecordNotFound
	}
	logger.Debug(ctx, "store", "store.update",
		slog.String("backend", "redis"),
		slog.String("position", pos.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// List loads records 1..seq in a single pipeline.
func (s *Store) List(ctx context.Context) ([]registration.Record, error) {
	last, err := s.client.Get(ctx, s.seqKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: read sequence: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, last)
	pipe := s.client.Pipeline()
	for i := int64(1); i <= last; i++ {
		cmds = append(cmds, pipe.HGetAll(ctx, s.recordKey(registration.Position(i))))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}

	out := make([]registration.Record, 0, len(cmds))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, toRecord(fields, registration.Position(i+1)))
	}
	return out, nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) logFind(ctx context.Context, id string, found bool, start time.Time) {
	logger.Debug(ctx, "store", "store.find",
		slog.String("backend", "redis"),
		slog.String("student_id", id),
		slog.Bool("found", found),
		slog.Duration("duration", logger.Took(start)),
	)
}

func toRecord(fields map[string]string, pos registration.Position) registration.Record {
	return registration.Record{
		Name:       fields[fieldName],
		StudentID:  fields[fieldStudentID],
		GuestCount: fields[fieldGuestCount],
		Position:   pos,
	}
}
