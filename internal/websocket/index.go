package websocket

import "sync"

// sessionIndex is the mutable state behind the Registry: room id -> session
// set and user id -> session set. Every method takes the single mutex, so no
// caller observes a half-applied mutation.
type sessionIndex struct {
	mu    sync.Mutex
	rooms map[int]map[*Session]struct{}
	users map[int]map[*Session]struct{}
}

func newSessionIndex() sessionIndex {
	return sessionIndex{
		rooms: make(map[int]map[*Session]struct{}),
		users: make(map[int]map[*Session]struct{}),
	}
}

func (ix *sessionIndex) add(s *Session) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	room, ok := ix.rooms[s.RoomID]
	if !ok {
		room = make(map[*Session]struct{})
		ix.rooms[s.RoomID] = room
	}
	room[s] = struct{}{}

	user, ok := ix.users[s.UserID]
	if !ok {
		user = make(map[*Session]struct{})
		ix.users[s.UserID] = user
	}
	user[s] = struct{}{}
}

// remove reports whether the session was present, and whether its removal
// left the user with zero sessions anywhere.
func (ix *sessionIndex) remove(s *Session) (removed, lastAnywhere bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	room, ok := ix.rooms[s.RoomID]
	if !ok {
		return false, false
	}
	if _, ok := room[s]; !ok {
		return false, false
	}

	delete(room, s)
	if len(room) == 0 {
		delete(ix.rooms, s.RoomID)
	}

	if user, ok := ix.users[s.UserID]; ok {
		delete(user, s)
		if len(user) == 0 {
			delete(ix.users, s.UserID)
			lastAnywhere = true
		}
	}

	return true, lastAnywhere
}

func (ix *sessionIndex) sessions(roomID int) []*Session {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	room := ix.rooms[roomID]
	if len(room) == 0 {
		return nil
	}

	snapshot := make([]*Session, 0, len(room))
	for s := range room {
		snapshot = append(snapshot, s)
	}
	return snapshot
}

func (ix *sessionIndex) activeUsers(roomID int) []int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	room := ix.rooms[roomID]
	if len(room) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(room))
	users := make([]int, 0, len(room))
	for s := range room {
		if _, ok := seen[s.UserID]; ok {
			continue
		}
		seen[s.UserID] = struct{}{}
		users = append(users, s.UserID)
	}
	return users
}
