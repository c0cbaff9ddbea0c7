package websocket

import (
	"encoding/json"

	"chat-gateway/pkg/logger"
)

// Broadcaster fans one event out to every session currently registered in a
// room. Per-recipient delivery failure is logged and skipped; it never stops
// delivery to the rest of the room and never deregisters the failed session
// (teardown belongs to the session's own handler). An empty room is a silent
// no-op.
type Broadcaster struct {
	registry *Registry
}

func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

func (b *Broadcaster) Broadcast(event interface{}, roomID int) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Error marshaling event for room %d: %v", roomID, err)
		return
	}

	// Snapshot under the registry lock, send outside it.
	for _, s := range b.registry.sessions(roomID) {
		if !s.enqueue(data) {
			logger.Error("Error delivering event to session %s in room %d: send buffer full or session closed", s.ID, roomID)
		}
	}
}
