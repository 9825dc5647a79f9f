package models

import (
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions is the full status machine. Cancelled and completed are
// terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderShipped, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderCompleted},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string      `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User        *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status      OrderStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Total       float64     `gorm:"type:decimal(10,2);default:0" json:"total"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// CanCancel reports whether the owning customer may still request
// cancellation. Admins use the full transition table instead.
func (o *Order) CanCancel() bool {
	return o.Status == OrderPending
}

// OrderItem freezes the product name and unit price at checkout time. The
// product reference is nullable so catalog deletions never rewrite history.
type OrderItem struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID     string   `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID   *string  `gorm:"type:varchar(36)" json:"product_id,omitempty"`
	ProductName string   `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity    int      `gorm:"not null" json:"quantity"`
	Price       float64  `gorm:"type:decimal(10,2);not null" json:"price"`
	Subtotal    float64  `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
