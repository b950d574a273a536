package runtime

import (
	"sync"

	"chattr/contract"
	"chattr/domain"
)

type Set map[string]struct{}

// session binds a connection id to an identity, its outbound sink, and the
// rooms it currently belongs to. It references room names only, never Room
// objects, so a removed room can never dangle through a session.
type session struct {
	identity domain.User
	sink     contract.EventSink
	rooms    Set
	order    []string // attach order, lobby first
}

// SessionStore is the authoritative connection directory. Disconnect
// reconciliation walks the session's own room set, not every room in the
// broker, so cleanup costs O(rooms the connection actually joined).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byRoom   map[string]Set // room name -> connection ids
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		byRoom:   make(map[string]Set),
	}
}

var _ contract.ISessionStore = (*SessionStore)(nil)

// Register creates the session on first lobby contact. Re-registering a
// live connection id (a lobby resync) keeps the room memberships and the
// byRoom index intact and only refreshes the identity and sink bindings.
func (s *SessionStore) Register(connID string, identity domain.User, sink contract.EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[connID]; ok {
		sess.identity = identity
		sess.sink = sink
		return
	}
	s.sessions[connID] = &session{
		identity: identity,
		sink:     sink,
		rooms:    make(Set),
	}
}

// AttachRoom adds a room to the session's broadcast group memberships.
func (s *SessionStore) AttachRoom(connID, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return
	}
	if _, already := sess.rooms[roomName]; already {
		return
	}
	sess.rooms[roomName] = struct{}{}
	sess.order = append(sess.order, roomName)

	if _, ok := s.byRoom[roomName]; !ok {
		s.byRoom[roomName] = make(Set)
	}
	s.byRoom[roomName][connID] = struct{}{}
}

// DetachRoom removes a single room from the session, used when a session
// moves from one room to another while staying connected.
func (s *SessionStore) DetachRoom(connID, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return
	}
	if _, member := sess.rooms[roomName]; !member {
		return
	}
	delete(sess.rooms, roomName)
	for i, name := range sess.order {
		if name == roomName {
			sess.order = append(sess.order[:i], sess.order[i+1:]...)
			break
		}
	}
	s.dropRoomIndex(connID, roomName)
}

// Unregister atomically removes the session and returns the identity plus
// every room it belonged to, in attach order, for disconnect reconciliation.
// Unknown connection ids are a no-op reporting ok=false.
func (s *SessionStore) Unregister(connID string) (domain.User, []string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return domain.User{}, nil, false
	}
	delete(s.sessions, connID)

	rooms := make([]string, len(sess.order))
	copy(rooms, sess.order)
	for _, roomName := range rooms {
		s.dropRoomIndex(connID, roomName)
	}
	return sess.identity, rooms, true
}

// SinksForRoom resolves the broadcast group of a room into live sinks.
func (s *SessionStore) SinksForRoom(roomName string) []contract.EventSink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns, ok := s.byRoom[roomName]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(conns))
	for connID := range conns {
		if sess, exists := s.sessions[connID]; exists {
			sinks = append(sinks, sess.sink)
		}
	}
	return sinks
}

// SinkFor returns the outbound sink of one connection, for caller-only pushes.
func (s *SessionStore) SinkFor(connID string) (contract.EventSink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return nil, false
	}
	return sess.sink, true
}

// Identity returns the user bound to a connection.
func (s *SessionStore) Identity(connID string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return domain.User{}, false
	}
	return sess.identity, true
}

// Rooms returns the session's room set in attach order.
func (s *SessionStore) Rooms(connID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, len(sess.order))
	copy(rooms, sess.order)
	return rooms
}

func (s *SessionStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// dropRoomIndex must be called with the write lock held. Empty sets are
// removed entirely to avoid leaking room names over time.
func (s *SessionStore) dropRoomIndex(connID, roomName string) {
	if conns, ok := s.byRoom[roomName]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(s.byRoom, roomName)
		}
	}
}
