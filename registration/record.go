// Package registration defines attendee records and the storage contract
// shared by every backend.
package registration

import "strconv"

// Position is an opaque handle to a record's location in a store. It is
// obtained from a lookup and required for an in-place update.
type Position int64

// String renders the position for logs.
func (p Position) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// Record is one stored attendee entry.
type Record struct {
	Name       string
	StudentID  string
	GuestCount string
	Position   Position
}

// Columns is the fixed three-column layout of every store, in order.
var Columns = [3]string{"name", "student_id", "guest_count"}
