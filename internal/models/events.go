package models

// Frame is a single inbound client payload on the chat socket.
type Frame struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

const (
	FrameTypeChatMessage = "chat_message"
	FrameTypeTyping      = "typing"
)

const (
	EventTypeNewMessage   = "new_message"
	EventTypeTyping       = "typing"
	EventTypeUserActivity = "user_activity"
)

const (
	ActivityJoined = "joined"
	ActivityLeft   = "left"
)

// NewMessageEvent carries a persisted chat message to room members. ID and
// CreatedAt come from the ledger record, never from the gateway clock.
type NewMessageEvent struct {
	Type           string `json:"type"`
	ID             int    `json:"id"`
	Text           string `json:"text"`
	SenderID       int    `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	RoomID         int    `json:"room_id"`
	CreatedAt      string `json:"created_at"`
}

// TypingEvent relays a typing indicator; it is never persisted.
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	RoomID   int    `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

// UserActivityEvent announces a user joining or leaving a room.
type UserActivityEvent struct {
	Type      string `json:"type"`
	UserID    int    `json:"user_id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}
