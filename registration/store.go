package registration

import "context"

// Store is durable, queryable storage of attendee records and the sole
// arbiter of the one-record-per-student-id invariant.
type Store interface {
	// EnsureInitialized creates an empty store with only its schema if none
	// exists. It is idempotent and never migrates existing data.
	EnsureInitialized(ctx context.Context) error
	// FindByStudentID returns the first record whose student id equals id
	// exactly, or ErrNotFound.
	FindByStudentID(ctx context.Context, id string) (Record, error)
	// Register appends rec unless a record with the same student id exists.
	// The lookup and the write happen atomically. On success the returned
	// record carries its position; otherwise the error is ErrDuplicate.
	Register(ctx context.Context, rec Record) (Record, error)
	// UpdateAt overwrites name and guest count of the record at pos, keeping
	// its student id and position. It returns ErrRecordNotFound if pos does
	// not resolve.
	UpdateAt(ctx context.Context, pos Position, name, guestCount string) error
	// List returns all records in registration order.
	List(ctx context.Context) ([]Record, error)
	Close() error
}
