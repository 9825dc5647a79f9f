package service

import (
	"context"
	"errors"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// ChatService manages rooms; message traffic itself flows through the chat
// hub and its persistence worker.
type ChatService struct {
	rooms  repository.ChatRepository
	orders repository.OrderRepository
	logger *zap.Logger
}

func NewChatService(rooms repository.ChatRepository, orders repository.OrderRepository, logger *zap.Logger) *ChatService {
	return &ChatService{
		rooms:  rooms,
		orders: orders,
		logger: logger,
	}
}

// OpenRoomForOrder lazily creates the order's room. Only the order's owner or
// an admin may open it; the first admin to enter an unassigned room is
// assigned to it.
func (s *ChatService) OpenRoomForOrder(ctx context.Context, orderID, actorID string, role models.Role) (*models.ChatRoom, bool, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, mapNotFound(err)
	}
	if order.UserID != actorID && !role.IsAdmin() {
		return nil, false, ErrPermissionDenied
	}

	room, created, err := s.rooms.GetOrCreateRoomForOrder(ctx, order)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("Chat room created",
			zap.String("room_id", room.ID), zap.String("order_id", orderID))
	}

	if role.IsAdmin() && room.AdminID == nil {
		if err := s.rooms.AssignAdmin(ctx, room.ID, actorID); err != nil {
			s.logger.Warn("Failed to assign admin to chat room",
				zap.String("room_id", room.ID), zap.Error(err))
		} else {
			room.AdminID = &actorID
		}
	}
	return room, created, nil
}

// Authorize loads a room and checks the access rule for a connecting
// identity: the room's customer or any admin. Inactive rooms reject everyone.
func (s *ChatService) Authorize(ctx context.Context, roomID, actorID string, role models.Role) (*models.ChatRoom, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrPermissionDenied
	}
	if !room.AccessibleBy(actorID, role) {
		return nil, ErrPermissionDenied
	}
	return room, nil
}

// History returns the most recent limit messages in chronological order.
func (s *ChatService) History(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit < 1 {
		limit = 50
	}
	return s.rooms.History(ctx, roomID, limit)
}

// RoomSummary decorates a room with its unread badge for listings.
type RoomSummary struct {
	Room   models.ChatRoom `json:"room"`
	Unread int64           `json:"unread"`
}

// ListRooms returns the actor's room listing: customers see their own active
// rooms with staff unreads, admins see all active rooms (filtered) with
// customer unreads.
func (s *ChatService) ListRooms(ctx context.Context, actorID string, role models.Role, filter repository.ChatRoomFilter) ([]RoomSummary, error) {
	var (
		rooms      []models.ChatRoom
		err        error
		senderRole models.Role
	)
	if role.IsAdmin() {
		rooms, err = s.rooms.ListActiveRooms(ctx, filter)
		senderRole = models.RoleCustomer
	} else {
		rooms, err = s.rooms.ListRoomsForCustomer(ctx, actorID)
		senderRole = models.RoleAdmin
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]RoomSummary, 0, len(rooms))
	for i := range rooms {
		unread, err := s.rooms.UnreadFromRole(ctx, rooms[i].ID, senderRole)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, RoomSummary{Room: rooms[i], Unread: unread})
	}
	return summaries, nil
}

// CloseRoom deactivates a room. Admin only.
func (s *ChatService) CloseRoom(ctx context.Context, roomID string, role models.Role) error {
	if !role.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := s.rooms.CloseRoom(ctx, roomID); err != nil {
		return mapNotFound(err)
	}
	s.logger.Info("Chat room closed", zap.String("room_id", roomID))
	return nil
}
