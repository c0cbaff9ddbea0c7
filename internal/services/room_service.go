package services

import (
	"context"
	"fmt"

	"chat-gateway/internal/database"
	"chat-gateway/internal/models"
)

type RoomService struct {
	db database.Database
}

func NewRoomService(db database.Database) *RoomService {
	return &RoomService{db: db}
}

func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, ownerID int) (*models.Room, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	room, err := s.db.CreateRoom(ctx, req, ownerID)
	if err != nil {
		return nil, err
	}

	// The owner is always a member of their own room.
	if err := s.db.AddMembership(ctx, ownerID, room.ID); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	return room, nil
}

func (s *RoomService) ListUserRooms(ctx context.Context, userID int) ([]*models.Room, error) {
	return s.db.ListUserRooms(ctx, userID)
}

func (s *RoomService) GetRoom(ctx context.Context, roomID int) (*models.Room, error) {
	return s.db.GetRoomByID(ctx, roomID)
}

func (s *RoomService) RoomExists(ctx context.Context, roomID int) (bool, error) {
	_, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID, ownerID int) error {
	return s.db.DeleteRoom(ctx, roomID, ownerID)
}

func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID int) error {
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room not found")
	}

	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("database error")
	}
	if isMember {
		return fmt.Errorf("already a member of this room")
	}

	if !room.IsPublic {
		return fmt.Errorf("forbidden - room is private, ask for an invite")
	}

	return s.db.AddMembership(ctx, userID, roomID)
}

func (s *RoomService) InviteUser(ctx context.Context, roomID, inviterID int, email string) error {
	// Get room to check permissions
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room not found")
	}

	// Check if inviter has permission
	if !room.IsPublic {
		canInvite := (room.OwnerID == inviterID)
		if !canInvite {
			isMember, err := s.db.IsMember(ctx, inviterID, roomID)
			if err != nil || !isMember {
				return fmt.Errorf("forbidden - not authorized to invite to this room")
			}
		}
	}

	// Get user by email
	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found")
	}

	// Add membership
	return s.db.AddMembership(ctx, user.ID, roomID)
}

func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID int) error {
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room not found")
	}

	// The owner deletes the room instead of leaving it.
	if room.OwnerID == userID {
		return fmt.Errorf("room owner cannot leave - delete the room instead")
	}

	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("database error")
	}
	if !isMember {
		return fmt.Errorf("not a member of this room")
	}

	return s.db.RemoveMembership(ctx, userID, roomID)
}

// GetRoomUsers returns the room's members with their live presence. The
// activeUserIDs slice comes from the connection registry at call time.
func (s *RoomService) GetRoomUsers(ctx context.Context, roomID, userID int, activeUserIDs []int) ([]*models.RoomUser, error) {
	if err := s.requireAccess(ctx, roomID, userID); err != nil {
		return nil, err
	}

	members, err := s.db.GetRoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	online := make(map[int]struct{}, len(activeUserIDs))
	for _, id := range activeUserIDs {
		online[id] = struct{}{}
	}

	users := make([]*models.RoomUser, 0, len(members))
	for _, m := range members {
		_, isOnline := online[m.ID]
		users = append(users, &models.RoomUser{
			ID:       m.ID,
			Username: m.Username,
			IsOnline: isOnline,
		})
	}

	return users, nil
}

// RoomMessages is the bounded history read-back: at most limit of the room's
// most recent messages, oldest first.
func (s *RoomService) RoomMessages(ctx context.Context, roomID, userID, limit int) ([]*models.Message, error) {
	if err := s.requireAccess(ctx, roomID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	return s.db.RecentMessages(ctx, roomID, limit)
}

func (s *RoomService) IsMember(ctx context.Context, userID, roomID int) (bool, error) {
	return s.db.IsMember(ctx, userID, roomID)
}

func (s *RoomService) CanUserAccessRoom(ctx context.Context, userID, roomID int) (bool, error) {
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}

	if room.IsPublic {
		return true, nil
	}

	return s.db.IsMember(ctx, userID, roomID)
}

func (s *RoomService) requireAccess(ctx context.Context, roomID, userID int) error {
	_, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room not found")
	}

	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("database error")
	}
	if !isMember {
		return fmt.Errorf("forbidden")
	}

	return nil
}
