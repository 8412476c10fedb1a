// Package state keeps per-user conversation sessions for bots. It knows
// nothing about the transport; callers store their own form type in Data.
package state

// State identifies a finite-state-machine step used in conversations.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// Session stores the conversation state and its collected data for one user.
type Session[T any] struct {
	State State
	Data  T
}

// Manager orchestrates user sessions. Sessions are transient: nothing is
// persisted and a session is only ever visible to its own user id.
type Manager[T any] interface {
	// Get returns the user's session and whether one exists.
	Get(userID int64) (Session[T], bool)
	// Put creates or replaces the user's session.
	Put(userID int64, s Session[T])
	// SetState moves an existing session to st; it is a no-op without one.
	SetState(userID int64, st State)
	// GetState returns the current state, or StateIdle.
	GetState(userID int64) State
	// Clear removes the session.
	Clear(userID int64)
	// InProgress reports whether the user has a non-idle session.
	InProgress(userID int64) bool
	// Lock serializes event handling for one user. The returned function
	// releases the lock.
	Lock(userID int64) (unlock func())
	// Len returns the number of live sessions.
	Len() int
}
