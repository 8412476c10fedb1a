// Package conversation drives the registration dialogue: it collects a name,
// a student id and a guest count turn by turn, registers new attendees and
// lets an already registered attendee edit their entry.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/core/state"
	"github.com/m3rciful/regbot/registration"
)

// Dialogue states. StateEnd is never stored: reaching it clears the session.
const (
	StateAwaitName      state.State = "await_name"
	StateAwaitID        state.State = "await_id"
	StateAwaitGuests    state.State = "await_guests"
	StateConfirmEdit    state.State = "confirm_edit"
	StateAwaitNewName   state.State = "await_new_name"
	StateAwaitNewGuests state.State = "await_new_guests"
	StateEnd            state.State = "end"
)

const component = "conversation"

// Form is the session context collected for one user during one conversation.
type Form struct {
	EnteredName string
	StudentID   string
	GuestCount  string
	// MatchedPosition is set when StudentID already has a record.
	MatchedPosition *registration.Position

	PendingNewName       string
	PendingNewGuestCount string
}

// Reply is the text sent back to the user. Choices, when present, are offered
// as canned answers; free text is still accepted.
type Reply struct {
	Text    string
	Choices []string
}

// Options tunes how confirmations are read.
type Options struct {
	// AffirmativeToken marks a reply as "yes".
	AffirmativeToken string
	// StrictConfirm requires the reply to equal the token or the yes choice
	// instead of merely containing the token.
	StrictConfirm bool
}

type step func(ctx context.Context, f *Form, text string) (Reply, state.State)

// Machine is the registration state machine. It is safe for concurrent use;
// events for the same user are handled one at a time.
type Machine struct {
	store    registration.Store
	sessions state.Manager[Form]
	opts     Options
	steps    map[state.State]step
}

// New builds a Machine over store. sessions may be nil for an in-memory manager.
func New(store registration.Store, sessions state.Manager[Form], opts Options) (*Machine, error) {
	if store == nil {
		return nil, errors.New("conversation: nil store")
	}
	opts.AffirmativeToken = strings.TrimSpace(opts.AffirmativeToken)
	if opts.AffirmativeToken == "" {
		return nil, errors.New("conversation: empty affirmative token")
	}
	if sessions == nil {
		sessions = state.NewMemoryManager[Form]()
	}
	m := &Machine{store: store, sessions: sessions, opts: opts}
	m.steps = map[state.State]step{
		StateAwaitName:      m.onName,
		StateAwaitID:        m.onStudentID,
		StateAwaitGuests:    m.onGuestCount,
		StateConfirmEdit:    m.onConfirmEdit,
		StateAwaitNewName:   m.onNewName,
		StateAwaitNewGuests: m.onNewGuestCount,
	}
	return m, nil
}

// YesChoice is the affirmative reply button.
func (m *Machine) YesChoice() string {
	return m.opts.AffirmativeToken + " ✅"
}

// Start begins a new session for userID, discarding any unfinished one.
func (m *Machine) Start(ctx context.Context, userID int64) Reply {
	unlock := m.sessions.Lock(userID)
	defer unlock()

	if prev := m.sessions.GetState(userID); prev != state.StateIdle {
		logger.Info(ctx, component, "conversation.restarted", slog.String("state", string(prev)))
	}
	m.sessions.Put(userID, state.Session[Form]{State: StateAwaitName})
	logger.Debug(ctx, component, "conversation.started")
	return Reply{Text: msgWelcome}
}

// Handle feeds one text message to the user's session. It reports false when
// the user has no session, leaving the message to the caller.
func (m *Machine) Handle(ctx context.Context, userID int64, text string) (Reply, bool) {
	unlock := m.sessions.Lock(userID)
	defer unlock()

	sess, ok := m.sessions.Get(userID)
	if !ok {
		return Reply{}, false
	}
	fn, ok := m.steps[sess.State]
	if !ok {
		m.sessions.Clear(userID)
		logger.Error(ctx, component, "conversation.invalid_state", slog.String("state", string(sess.State)))
		return Reply{Text: msgStoreFailure}, true
	}

	reply, next := fn(ctx, &sess.Data, strings.TrimSpace(text))
	if next == StateEnd {
		m.sessions.Clear(userID)
	} else {
		m.sessions.Put(userID, state.Session[Form]{State: next, Data: sess.Data})
	}
	logger.Debug(ctx, component, "conversation.step",
		slog.String("state", string(sess.State)),
		slog.String("next_state", string(next)),
	)
	return reply, true
}

// Cancel ends the user's session without touching the store. It reports
// false when there was nothing to cancel.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Reply, bool) {
	unlock := m.sessions.Lock(userID)
	defer unlock()

	current := m.sessions.GetState(userID)
	if current == state.StateIdle {
		return Reply{}, false
	}
	m.sessions.Clear(userID)
	logger.Info(ctx, component, "conversation.cancelled",
		slog.String("status", "cancelled"),
		slog.String("state", string(current)),
	)
	return Reply{Text: msgCancelled}, true
}

// InProgress reports whether userID has an open session.
func (m *Machine) InProgress(userID int64) bool {
	return m.sessions.InProgress(userID)
}

func (m *Machine) onName(_ context.Context, f *Form, text string) (Reply, state.State) {
	f.EnteredName = text
	return Reply{Text: msgAskStudentID}, StateAwaitID
}

func (m *Machine) onStudentID(ctx context.Context, f *Form, text string) (Reply, state.State) {
	f.StudentID = text
	rec, err := m.store.FindByStudentID(ctx, text)
	switch {
	case errors.Is(err, registration.ErrNotFound):
		return Reply{Text: msgAskGuestCount}, StateAwaitGuests
	case err != nil:
		return m.storeFailure(ctx, "find", f, err)
	}
	pos := rec.Position
	f.MatchedPosition = &pos
	return Reply{
		Text:    msgAlreadyRegistered(rec.Name, rec.GuestCount),
		Choices: []string{m.YesChoice(), NoChoice},
	}, StateConfirmEdit
}

func (m *Machine) onConfirmEdit(ctx context.Context, f *Form, text string) (Reply, state.State) {
	if m.affirmative(text) {
		return Reply{Text: msgAskNewName}, StateAwaitNewName
	}
	logger.Info(ctx, component, "registration.kept",
		slog.String("status", "skip"),
		slog.String("student_id", f.StudentID),
	)
	return Reply{Text: msgUnchanged}, StateEnd
}

func (m *Machine) onNewName(_ context.Context, f *Form, text string) (Reply, state.State) {
	f.PendingNewName = text
	return Reply{Text: msgAskNewGuestCount}, StateAwaitNewGuests
}

func (m *Machine) onNewGuestCount(ctx context.Context, f *Form, text string) (Reply, state.State) {
	f.PendingNewGuestCount = text
	if f.MatchedPosition == nil {
		return m.rowMissing(ctx, f, registration.ErrRecordNotFound)
	}
	err := m.store.UpdateAt(ctx, *f.MatchedPosition, f.PendingNewName, f.PendingNewGuestCount)
	switch {
	case errors.Is(err, registration.ErrRecordNotFound):
		return m.rowMissing(ctx, f, err)
	case err != nil:
		return m.storeFailure(ctx, "update", f, err)
	}
	logger.Info(ctx, component, "registration.updated",
		slog.String("status", "ok"),
		slog.String("student_id", f.StudentID),
		slog.String("position", f.MatchedPosition.String()),
	)
	return Reply{Text: msgUpdated}, StateEnd
}

func (m *Machine) onGuestCount(ctx context.Context, f *Form, text string) (Reply, state.State) {
	f.GuestCount = text
	rec, err := m.store.Register(ctx, registration.Record{
		Name:       f.EnteredName,
		StudentID:  f.StudentID,
		GuestCount: f.GuestCount,
	})
	switch {
	case errors.Is(err, registration.ErrDuplicate):
		logger.Warn(ctx, component, "registration.duplicate",
			slog.String("status", "duplicate"),
			slog.String("student_id", f.StudentID),
		)
		return Reply{Text: msgJustRegistered}, StateEnd
	case err != nil:
		return m.storeFailure(ctx, "register", f, err)
	}
	logger.Info(ctx, component, "registration.created",
		slog.String("status", "ok"),
		slog.String("student_id", rec.StudentID),
		slog.String("position", rec.Position.String()),
	)
	return Reply{Text: msgRegistered}, StateEnd
}

func (m *Machine) affirmative(text string) bool {
	if m.opts.StrictConfirm {
		return text == m.opts.AffirmativeToken || text == m.YesChoice()
	}
	return strings.Contains(text, m.opts.AffirmativeToken)
}

func (m *Machine) rowMissing(ctx context.Context, f *Form, err error) (Reply, state.State) {
	logger.Warn(ctx, component, "registration.row_missing",
		slog.String("status", "not_found"),
		slog.String("student_id", f.StudentID),
		slog.Any("err", err),
	)
	return Reply{Text: msgRowMissing}, StateEnd
}

func (m *Machine) storeFailure(ctx context.Context, op string, f *Form, err error) (Reply, state.State) {
	logger.Error(ctx, component, "store.failed",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("student_id", f.StudentID),
		slog.Any("err", fmt.Errorf("%s: %w", op, err)),
	)
	return Reply{Text: msgStoreFailure}, StateEnd
}
