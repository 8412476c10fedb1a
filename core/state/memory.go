package state

import "sync"

type userLock struct {
	mu   sync.Mutex
	refs int
}

type memoryManager[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]Session[T]

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

// NewMemoryManager returns a Manager that keeps sessions in process memory.
func NewMemoryManager[T any]() Manager[T] {
	return &memoryManager[T]{
		sessions: make(map[int64]Session[T]),
		locks:    make(map[int64]*userLock),
	}
}

func (m *memoryManager[T]) Get(userID int64) (Session[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *memoryManager[T]) Put(userID int64, s Session[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

func (m *memoryManager[T]) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		s.State = st
		m.sessions[userID] = s
	}
}

func (m *memoryManager[T]) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.State
	}
	return StateIdle
}

func (m *memoryManager[T]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager[T]) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

func (m *memoryManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock hands out one mutex per user id. Entries are reference counted and
// dropped when the last holder or waiter releases them.
func (m *memoryManager[T]) Lock(userID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, userID)
			}
			m.locksMu.Unlock()
		})
	}
}
