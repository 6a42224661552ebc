package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/weft/vm"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one client's runtime: a VM, its persisted state and the worker
// that owns it.
type Session struct {
	ID      string
	Created time.Time
	Worker  *RuntimeWorker
}

// Sessions manages the live sessions of a server.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newVM    func() *vm.VM
}

// NewSessions creates an empty session table. newVM builds the VM of each
// new session.
func NewSessions(newVM func() *vm.VM) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		newVM:    newVM,
	}
}

// Create starts a session with a fresh VM.
func (s *Sessions) Create() *Session {
	session := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		Worker:  NewRuntimeWorker(s.newVM()),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Debugf("created session %s", session.ID)
	return session
}

// Get retrieves a session by id.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Resolve returns the session named by id, creating one when id is empty.
func (s *Sessions) Resolve(id string) (*Session, error) {
	if id == "" {
		return s.Create(), nil
	}
	session, ok := s.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Destroy stops a session's worker and forgets it.
func (s *Sessions) Destroy(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.Worker.Interrupt()
		session.Worker.Stop()
		log.Debugf("destroyed session %s", id)
	}
	return ok
}

// IDs returns the ids of the live sessions in sorted order.
func (s *Sessions) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close destroys every session.
func (s *Sessions) Close() {
	for _, id := range s.IDs() {
		s.Destroy(id)
	}
}
