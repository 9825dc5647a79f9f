package repository

import (
	"context"

	"github.com/example/storefront/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	UserID   string
	Status   models.OrderStatus
	Search   string // matches order ID or customer email
	Page     int
	PageSize int
}

// OrderTx is the unit of work for checkout, cancellation and re-quotes. Every
// method runs inside the surrounding transaction; LockProduct and LockOrder
// take row locks so concurrent checkouts cannot over-debit stock.
type OrderTx interface {
	LockProduct(id string) (*models.Product, error)
	SaveProduct(p *models.Product) error
	CreateOrder(o *models.Order) error
	CreateOrderItems(items []models.OrderItem) error
	LockOrder(id string) (*models.Order, error)
	SaveOrder(o *models.Order) error
	SaveOrderItem(item *models.OrderItem) error
	OrderItems(orderID string) ([]models.OrderItem, error)
	CartItems(cartID string) ([]models.CartItem, error)
	ClearCart(cartID string) error
}

type OrderRepository interface {
	InTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) InTx(ctx context.Context, fn func(tx OrderTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&orderTx{tx: tx})
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")

	if filter.UserID != "" {
		query = query.Where("orders.user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Joins("JOIN users ON users.id = orders.user_id").
			Where("orders.id LIKE ? OR users.email LIKE ?",
				"%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	var orders []models.Order
	err := query.Order("orders.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

type orderTx struct {
	tx *gorm.DB
}

func (t *orderTx) LockProduct(id string) (*models.Product, error) {
	var product models.Product
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (t *orderTx) SaveProduct(p *models.Product) error {
	return t.tx.Save(p).Error
}

func (t *orderTx) CreateOrder(o *models.Order) error {
	return t.tx.Create(o).Error
}

func (t *orderTx) CreateOrderItems(items []models.OrderItem) error {
	return t.tx.Create(&items).Error
}

func (t *orderTx) LockOrder(id string) (*models.Order, error) {
	var order models.Order
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (t *orderTx) SaveOrder(o *models.Order) error {
	return t.tx.Save(o).Error
}

func (t *orderTx) SaveOrderItem(item *models.OrderItem) error {
	return t.tx.Save(item).Error
}

func (t *orderTx) OrderItems(orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := t.tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (t *orderTx) CartItems(cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := t.tx.Preload("Product").
		Where("cart_id = ?", cartID).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (t *orderTx) ClearCart(cartID string) error {
	return t.tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
