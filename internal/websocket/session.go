// Package websocket holds the gateway's live-connection core: the session
// registry that tracks which users are present in which rooms, the
// broadcaster that fans chat events out to room members, and the Session
// type that owns one physical connection from handshake to teardown.
package websocket

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"chat-gateway/internal/database"

	"github.com/gorilla/websocket"
)

// State tracks a session's progress through its lifecycle.
type State int

const (
	// StateConnecting means the raw transport is accepted but no credential
	// has been seen yet.
	StateConnecting State = iota

	// StateAuthenticating means a credential has been presented and is being
	// verified.
	StateAuthenticating

	// StateAuthorized means identity is resolved and room membership checked.
	StateAuthorized

	// StateActive means the session is registered and reading frames.
	StateActive

	// StateClosing means teardown has begun; the session is being removed
	// from the registry.
	StateClosing

	// StateClosed is terminal.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorized:
		return "authorized"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live connection. A user may hold several sessions at once
// (one per device); each gets its own id, distinct from the user id.
type Session struct {
	ID        string
	UserID    int
	Username  string
	RoomID    int
	CreatedAt time.Time

	conn        *websocket.Conn
	send        chan []byte
	registry    *Registry
	broadcaster *Broadcaster
	ledger      database.MessageRepository

	mu     sync.Mutex
	state  State
	closed bool
}

func NewSession(conn *websocket.Conn, userID int, username string, roomID int, registry *Registry, broadcaster *Broadcaster, ledger database.MessageRepository, sendBufferLen int) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	if sendBufferLen <= 0 {
		sendBufferLen = 256
	}

	return &Session{
		ID:          sessionID,
		UserID:      userID,
		Username:    username,
		RoomID:      roomID,
		CreatedAt:   time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendBufferLen),
		registry:    registry,
		broadcaster: broadcaster,
		ledger:      ledger,
		state:       StateConnecting,
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// enqueue hands a marshaled event to the session's writer. It never blocks:
// a full buffer or an already-closed session reports delivery failure to the
// caller instead of stalling the broadcast loop.
func (s *Session) enqueue(message []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// closeSend shuts the outbound channel exactly once. Broadcasts racing a
// closing session see closed=true and drop the delivery.
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
