package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-gateway/internal/auth"
	"chat-gateway/internal/database"
	"chat-gateway/internal/services"
	ws "chat-gateway/internal/websocket"
	"chat-gateway/pkg/logger"

	"github.com/gorilla/websocket"
)

// Handshake rejection reasons, sent with close code 1008.
const (
	reasonMissingToken  = "Missing authentication token"
	reasonInvalidToken  = "Invalid authentication token"
	reasonNotFound      = "User or room not found"
	reasonNotAuthorized = "Access denied: You are not a member of this room"
)

type WebSocketHandlers struct {
	authService   *auth.Service
	roomService   *services.RoomService
	registry      *ws.Registry
	broadcaster   *ws.Broadcaster
	db            database.Database
	sendBufferLen int
	upgrader      websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, roomService *services.RoomService, registry *ws.Registry, broadcaster *ws.Broadcaster, db database.Database, sendBufferLen int) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService:   authService,
		roomService:   roomService,
		registry:      registry,
		broadcaster:   broadcaster,
		db:            db,
		sendBufferLen: sendBufferLen,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket runs the handshake for /ws/{roomID}: upgrade, credential
// check, room and membership check, then registration. Any failure closes
// the socket with a policy-violation frame and a specific reason; the
// session never reaches the registry on a failed handshake.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/ws/"))
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	token := bearerToken(r)

	// Upgrade first so rejections arrive as close frames, not HTTP errors.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	phase := ws.StateConnecting

	if token == "" {
		logger.Warn("WebSocket handshake rejected in state %s: no token", phase)
		closePolicyViolation(conn, reasonMissingToken)
		return
	}

	phase = ws.StateAuthenticating
	userID, err := h.authService.VerifyToken(token)
	if err != nil {
		logger.Warn("WebSocket handshake rejected in state %s: invalid token", phase)
		closePolicyViolation(conn, reasonInvalidToken)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		logger.Warn("WebSocket handshake rejected in state %s: unknown user %d", phase, userID)
		closePolicyViolation(conn, reasonNotFound)
		return
	}

	phase = ws.StateAuthorized
	exists, err := h.roomService.RoomExists(r.Context(), roomID)
	if err != nil || !exists {
		logger.Warn("WebSocket handshake rejected in state %s: unknown room %d", phase, roomID)
		closePolicyViolation(conn, reasonNotFound)
		return
	}

	isMember, err := h.roomService.IsMember(r.Context(), user.ID, roomID)
	if err != nil || !isMember {
		logger.Warn("WebSocket handshake rejected in state %s: user %s is not a member of room %d", phase, user.Username, roomID)
		closePolicyViolation(conn, reasonNotAuthorized)
		return
	}

	session, err := ws.NewSession(conn, user.ID, user.Username, roomID, h.registry, h.broadcaster, h.db, h.sendBufferLen)
	if err != nil {
		logger.Error("Error creating session: %v", err)
		conn.Close()
		return
	}

	h.registry.Register(session)

	go session.WritePump()
	go session.ReadPump()
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}
