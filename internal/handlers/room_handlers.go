package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"chat-gateway/internal/auth"
	"chat-gateway/internal/models"
	"chat-gateway/internal/services"
	ws "chat-gateway/internal/websocket"
	"chat-gateway/pkg/logger"
)

type RoomHandlers struct {
	roomService  *services.RoomService
	authService  *auth.Service
	registry     *ws.Registry
	historyLimit int
}

func NewRoomHandlers(roomService *services.RoomService, authService *auth.Service, registry *ws.Registry, historyLimit int) *RoomHandlers {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &RoomHandlers{
		roomService:  roomService,
		authService:  authService,
		registry:     registry,
		historyLimit: historyLimit,
	}
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), &req, user.ID)
	if err != nil {
		logger.Error("Create room error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rooms, err := h.roomService.ListUserRooms(r.Context(), user.ID)
	if err != nil {
		logger.Error("List rooms error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rooms)
}

func (h *RoomHandlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	if err := h.roomService.DeleteRoom(r.Context(), roomID, user.ID); err != nil {
		logger.Error("Delete room error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("room deleted successfully"))
}

func (h *RoomHandlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	canAccess, err := h.roomService.CanUserAccessRoom(r.Context(), user.ID, roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if !canAccess {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

func (h *RoomHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	if err := h.roomService.JoinRoom(r.Context(), user.ID, roomID); err != nil {
		logger.Error("Join room error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("joined room successfully"))
}

func (h *RoomHandlers) InviteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := h.roomService.InviteUser(r.Context(), roomID, user.ID, req.Email); err != nil {
		logger.Error("Invite user error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("user invited to room"))
}

func (h *RoomHandlers) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	if err := h.roomService.LeaveRoom(r.Context(), user.ID, roomID); err != nil {
		logger.Error("Leave room error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("left room successfully"))
}

// GetRoomUsers lists the room's members with their online status derived
// from the live connection registry.
func (h *RoomHandlers) GetRoomUsers(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	users, err := h.roomService.GetRoomUsers(r.Context(), roomID, user.ID, h.registry.ActiveUsers(roomID))
	if err != nil {
		logger.Error("Get room users error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"room_id": roomID,
		"users":   users,
	})
}

func (h *RoomHandlers) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	user, err := h.getUserFromToken(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := h.getRoomIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	limit := h.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	messages, err := h.roomService.RoomMessages(r.Context(), roomID, user.ID, limit)
	if err != nil {
		logger.Error("Get room messages error: %v", err)
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

func (h *RoomHandlers) getUserFromToken(r *http.Request) (*models.User, error) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			tokenStr = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if tokenStr == "" {
		return nil, fmt.Errorf("missing token")
	}

	return h.authService.GetUserFromToken(r.Context(), tokenStr)
}

func (h *RoomHandlers) getRoomIDFromPath(r *http.Request) (int, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 {
		return 0, fmt.Errorf("invalid path")
	}

	return strconv.Atoi(parts[2])
}
