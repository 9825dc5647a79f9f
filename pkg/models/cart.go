package models

import (
	"time"
)

// Cart is owned by exactly one of a user or an anonymous session. Anonymous
// carts live in Redis and are folded into the user's DB cart at login, so DB
// rows always carry a user ID here.
type Cart struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"type:varchar(36);uniqueIndex" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

// Total sums live-price subtotals over preloaded items.
func (c *Cart) Total() float64 {
	var total float64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	return total
}

// ItemCount sums quantities over preloaded items.
func (c *Cart) ItemCount() int {
	var n int
	for i := range c.Items {
		n += c.Items[i].Quantity
	}
	return n
}

type CartItem struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CartID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal is priced live from the product; only order items freeze prices.
func (ci *CartItem) Subtotal() float64 {
	if ci.Product == nil {
		return 0
	}
	return ci.Product.Price * float64(ci.Quantity)
}

// SessionCart is the Redis representation of an anonymous cart: product ID to
// requested quantity.
type SessionCart map[string]int
