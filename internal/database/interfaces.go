package database

import (
	"context"

	"chat-gateway/internal/models"
)

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, req *models.CreateRoomRequest, ownerID int) (*models.Room, error)
	GetRoomByID(ctx context.Context, id int) (*models.Room, error)
	ListUserRooms(ctx context.Context, userID int) ([]*models.Room, error)
	DeleteRoom(ctx context.Context, roomID, ownerID int) error
}

// MessageRepository is the durable ledger for chat messages. AppendMessage
// returns the persisted record so callers broadcast the store-assigned
// identifier and timestamp. RecentMessages returns at most limit of the
// most recent rows, oldest first.
type MessageRepository interface {
	AppendMessage(ctx context.Context, roomID, senderID int, text string) (*models.Message, error)
	RecentMessages(ctx context.Context, roomID, limit int) ([]*models.Message, error)
}

type MembershipRepository interface {
	AddMembership(ctx context.Context, userID, roomID int) error
	RemoveMembership(ctx context.Context, userID, roomID int) error
	IsMember(ctx context.Context, userID, roomID int) (bool, error)
	GetRoomMembers(ctx context.Context, roomID int) ([]*models.Member, error)
}

type Database interface {
	UserRepository
	RoomRepository
	MessageRepository
	MembershipRepository
	Close() error
}
