package websocket

import (
	"context"
	"encoding/json"
	"time"

	"chat-gateway/internal/models"
	"chat-gateway/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// ReadPump loops over inbound frames until the connection errors or the
// client closes. Malformed frames, unknown types and empty chat text are
// dropped without breaking the loop; only a transport error ends it. On exit
// the session deregisters itself and releases the connection.
func (s *Session) ReadPump() {
	defer func() {
		s.setState(StateClosing)
		s.registry.Deregister(s)
		s.closeSend()
		s.conn.Close()
		s.setState(StateClosed)
	}()

	// Read deadline and pong handler for connection health
	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Error("WebSocket error for session %s: %v", s.ID, err)
			}
			break
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		s.dispatch(&frame)
	}
}

func (s *Session) dispatch(frame *models.Frame) {
	switch frame.Type {
	case models.FrameTypeChatMessage:
		s.handleChatMessage(frame.Text)
	case models.FrameTypeTyping:
		s.broadcaster.Broadcast(models.TypingEvent{
			Type:     models.EventTypeTyping,
			UserID:   s.UserID,
			Username: s.Username,
			RoomID:   s.RoomID,
			IsTyping: frame.IsTyping,
		}, s.RoomID)
	default:
		// Unknown frame types are dropped; the session stays active.
	}
}

func (s *Session) handleChatMessage(text string) {
	if text == "" {
		return
	}

	// Persist first; a failed append means no broadcast, but the session
	// stays active for subsequent frames.
	msg, err := s.ledger.AppendMessage(context.Background(), s.RoomID, s.UserID, text)
	if err != nil {
		logger.Error("Error saving message from user %d in room %d: %v", s.UserID, s.RoomID, err)
		return
	}

	s.broadcaster.Broadcast(models.NewMessageEvent{
		Type:           models.EventTypeNewMessage,
		ID:             msg.ID,
		Text:           msg.Text,
		SenderID:       msg.SenderID,
		SenderUsername: s.Username,
		RoomID:         msg.RoomID,
		CreatedAt:      msg.CreatedAt.UTC().Format(time.RFC3339),
	}, s.RoomID)
}

// WritePump drains the send channel onto the wire and keeps the connection
// alive with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error for session %s: %v", s.ID, err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
