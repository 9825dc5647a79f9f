package models

import (
	"time"
)

// ChatRoom is the per-order channel between the ordering customer and staff.
// The admin reference is assigned when the first staff member enters.
type ChatRoom struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID    string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"order_id"`
	Order      *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	CustomerID string    `gorm:"type:varchar(36);not null;index" json:"customer_id"`
	Customer   *User     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	AdminID    *string   `gorm:"type:varchar(36)" json:"admin_id,omitempty"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// AccessibleBy is the room access rule: the room's customer, or any admin.
func (r *ChatRoom) AccessibleBy(userID string, role Role) bool {
	return r.CustomerID == userID || role.IsAdmin()
}

// Message is append-only. Seq is a per-room monotonic counter assigned at
// persistence time so clients can detect delivery gaps.
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChatRoomID string    `gorm:"type:varchar(36);not null;index:idx_room_seq" json:"chat_room_id"`
	SenderID   string    `gorm:"type:varchar(36);not null" json:"sender_id"`
	Sender     *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Seq        int64     `gorm:"not null;index:idx_room_seq" json:"seq"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
