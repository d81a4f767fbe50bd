package session

import "sync"

// Store tracks active sessions and remembers caller data between calls.
// The interface is injected into the orchestrator so the in-memory
// backing can be swapped for an external key-value store without
// touching call handling.
type Store interface {
	// GetOrCreate returns the active session for a caller, creating one
	// seeded with any previously persisted caller data.
	GetOrCreate(callerNumber, callSID string) *CallSession

	// Get returns the active session for a caller, if any.
	Get(callerNumber string) (*CallSession, bool)

	// Put records a finished session's caller data for reuse on the
	// caller's next call and drops the active session.
	Put(s *CallSession)

	// Delete removes the active session without persisting anything.
	Delete(callerNumber string)

	// ActiveCount returns the number of in-flight calls.
	ActiveCount() int
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	active  map[string]*CallSession
	callers map[string]CallerData
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		active:  make(map[string]*CallSession),
		callers: make(map[string]CallerData),
	}
}

// GetOrCreate returns the caller's active session, creating and seeding
// it from persisted caller data when absent.
func (m *MemoryStore) GetOrCreate(callerNumber, callSID string) *CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.active[callerNumber]; ok {
		return s
	}

	s := New(callSID, callerNumber)
	if data, ok := m.callers[callerNumber]; ok {
		s.SeedData(data)
	}
	m.active[callerNumber] = s
	return s
}

// Get returns the caller's active session.
func (m *MemoryStore) Get(callerNumber string) (*CallSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.active[callerNumber]
	return s, ok
}

// Put persists the session's caller data and retires the session.
func (m *MemoryStore) Put(s *CallSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callers[s.CallerNumber] = s.Data()
	delete(m.active, s.CallerNumber)
}

// Delete removes the caller's active session.
func (m *MemoryStore) Delete(callerNumber string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, callerNumber)
}

// ActiveCount returns the number of in-flight calls.
func (m *MemoryStore) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CallerData returns the persisted data for a caller, if any.
func (m *MemoryStore) CallerData(callerNumber string) (CallerData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.callers[callerNumber]
	return data, ok
}

var _ Store = (*MemoryStore)(nil)
