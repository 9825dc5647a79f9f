package repository

import (
	"context"
	"errors"

	"github.com/example/storefront/pkg/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRoomFilter narrows the admin room listing.
type ChatRoomFilter struct {
	OrderStatus models.OrderStatus
	Assigned    *bool
	Search      string // matches customer email or order ID
}

type ChatRepository interface {
	GetRoom(ctx context.Context, id string) (*models.ChatRoom, error)
	// GetOrCreateRoomForOrder lazily creates the order's room on first use.
	GetOrCreateRoomForOrder(ctx context.Context, order *models.Order) (*models.ChatRoom, bool, error)
	AssignAdmin(ctx context.Context, roomID, adminID string) error
	CloseRoom(ctx context.Context, roomID string) error
	ListRoomsForCustomer(ctx context.Context, customerID string) ([]models.ChatRoom, error)
	ListActiveRooms(ctx context.Context, filter ChatRoomFilter) ([]models.ChatRoom, error)

	// SaveMessage assigns the per-room sequence number and persists the row.
	SaveMessage(ctx context.Context, msg *models.Message) error
	// History returns the most recent limit messages in chronological order.
	History(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	// MarkReadExceptSender flips is_read on every room message not sent by
	// readerID and reports how many rows changed.
	MarkReadExceptSender(ctx context.Context, roomID, readerID string) (int64, error)
	// UnreadFromRole counts unread room messages whose sender holds the given
	// role, for the room-list badges.
	UnreadFromRole(ctx context.Context, roomID string, senderRole models.Role) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Customer").
		Where("id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r *chatRepository) GetOrCreateRoomForOrder(ctx context.Context, order *models.Order) (*models.ChatRoom, bool, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		First(&room).Error
	if err == nil {
		return &room, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	room = models.ChatRoom{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		CustomerID: order.UserID,
		IsActive:   true,
	}
	if err := r.db.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, false, err
	}
	return &room, true, nil
}

func (r *chatRepository) AssignAdmin(ctx context.Context, roomID, adminID string) error {
	res := r.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ? AND admin_id IS NULL", roomID).
		Update("admin_id", adminID)
	return res.Error
}

func (r *chatRepository) CloseRoom(ctx context.Context, roomID string) error {
	res := r.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Where("id = ?", roomID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *chatRepository) ListRoomsForCustomer(ctx context.Context, customerID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Order("updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRepository) ListActiveRooms(ctx context.Context, filter ChatRoomFilter) ([]models.ChatRoom, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatRoom{}).
		Preload("Order").
		Preload("Customer").
		Where("chat_rooms.is_active = ?", true)

	if filter.OrderStatus != "" {
		query = query.Joins("JOIN orders ON orders.id = chat_rooms.order_id").
			Where("orders.status = ?", filter.OrderStatus)
	}
	if filter.Assigned != nil {
		if *filter.Assigned {
			query = query.Where("chat_rooms.admin_id IS NOT NULL")
		} else {
			query = query.Where("chat_rooms.admin_id IS NULL")
		}
	}
	if filter.Search != "" {
		query = query.Joins("JOIN users ON users.id = chat_rooms.customer_id").
			Where("users.email LIKE ? OR chat_rooms.order_id LIKE ?",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var rooms []models.ChatRoom
	if err := query.Order("chat_rooms.updated_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *chatRepository) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the room row so the per-room sequence stays monotonic even if
		// writers ever bypass the persistence actor.
		var room models.ChatRoom
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.ChatRoomID).
			First(&room).Error
		if err != nil {
			return translate(err)
		}

		var maxSeq int64
		err = tx.Model(&models.Message{}).
			Where("chat_room_id = ?", msg.ChatRoomID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error
		if err != nil {
			return err
		}
		msg.Seq = maxSeq + 1

		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Bump the room so recently active chats sort first.
		return tx.Model(&models.ChatRoom{}).
			Where("id = ?", msg.ChatRoomID).
			Update("updated_at", msg.CreatedAt).Error
	})
}

func (r *chatRepository) History(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("chat_room_id = ?", roomID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepository) MarkReadExceptSender(ctx context.Context, roomID, readerID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *chatRepository) UnreadFromRole(ctx context.Context, roomID string, senderRole models.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("messages.chat_room_id = ? AND messages.is_read = ? AND users.role = ?",
			roomID, false, senderRole).
		Count(&count).Error
	return count, err
}
