package registration

import "errors"

var (
	// ErrNotFound reports that no record has the requested student id.
	// It signals eligibility for a new registration, not a failure.
	ErrNotFound = errors.New("registration: student id not registered")
	// ErrRecordNotFound reports that a position no longer resolves to a record.
	ErrRecordNotFound = errors.New("registration: record not found at position")
	// ErrDuplicate reports that the student id was registered by someone else
	// between the initial lookup and the insert.
	ErrDuplicate = errors.New("registration: student id already registered")
)
