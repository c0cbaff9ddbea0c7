package websocket

import (
	"time"

	"chat-gateway/internal/models"
	"chat-gateway/pkg/logger"
)

// Registry is the authoritative in-memory index of live sessions. One mutex
// (embedded in sessionIndex) guards the room and user mappings together so
// Register, Deregister and ActiveUsers form a linearizable sequence. Presence
// is volatile: the registry starts empty on every process start.
type Registry struct {
	index       sessionIndex
	broadcaster *Broadcaster
}

func NewRegistry() *Registry {
	return &Registry{
		index: newSessionIndex(),
	}
}

// SetBroadcaster wires the presence-event sink. Called once during startup,
// before any connection is accepted.
func (r *Registry) SetBroadcaster(b *Broadcaster) {
	r.broadcaster = b
}

// Register adds the session to its room's and user's sets and marks it
// Active. A joined event is emitted on every successful registration, even
// for a user's second concurrent session to the same room; left is only
// emitted for the last session. Clients rely on this asymmetry.
func (r *Registry) Register(s *Session) {
	r.index.add(s)
	s.setState(StateActive)

	logger.Info("User %d connected to room %d (session %s)", s.UserID, s.RoomID, s.ID)

	r.broadcastActivity(s.RoomID, s.UserID, models.ActivityJoined)
}

// Deregister removes the session from both sets. Removing an already-absent
// session is a no-op. When the user's last session anywhere closes, the left
// event is dispatched on its own goroutine so teardown never blocks on slow
// peers; a failure in that dispatch is logged, not propagated.
func (r *Registry) Deregister(s *Session) {
	removed, lastAnywhere := r.index.remove(s)
	if !removed {
		return
	}

	logger.Info("User %d disconnected from room %d (session %s)", s.UserID, s.RoomID, s.ID)

	if lastAnywhere {
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic broadcasting leave for user %d in room %d: %v", s.UserID, s.RoomID, rec)
				}
			}()
			r.broadcastActivity(s.RoomID, s.UserID, models.ActivityLeft)
		}()
	}
}

// ActiveUsers returns the ids of users holding at least one live session in
// the room.
func (r *Registry) ActiveUsers(roomID int) []int {
	return r.index.activeUsers(roomID)
}

// sessions returns a snapshot of the room's current session set. The
// broadcaster sends outside the registry lock so a slow peer never stalls
// register/deregister calls.
func (r *Registry) sessions(roomID int) []*Session {
	return r.index.sessions(roomID)
}

func (r *Registry) broadcastActivity(roomID, userID int, action string) {
	if r.broadcaster == nil {
		return
	}

	r.broadcaster.Broadcast(models.UserActivityEvent{
		Type:      models.EventTypeUserActivity,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, roomID)
}
