package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Auditor records and serves order lifecycle events. Writes are
// fire-and-forget; reads back the trail for the admin view.
type Auditor interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

// OrderService owns checkout, the order status machine and re-quotes. Stock
// debits and credits only ever happen inside a single transaction with the
// affected product rows locked, so concurrent checkouts against the same
// product cannot both pass validation.
type OrderService struct {
	orders repository.OrderRepository
	audit  Auditor
	logger *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, audit Auditor, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders: orders,
		audit:  audit,
		logger: logger,
	}
}

// Create snapshots the cart into an order: one Order row (pending), one
// OrderItem per line freezing name and unit price, stock debited per line,
// cart cleared. All-or-nothing; the first line over stock aborts everything.
func (s *OrderService) Create(ctx context.Context, userID, cartID string) (*models.Order, error) {
	order := &models.Order{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: models.OrderPending,
	}

	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		lines, err := tx.CartItems(cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		if err := tx.CreateOrder(order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		var total float64
		for i := range lines {
			line := &lines[i]

			// Re-check under lock: the cart-time check may be stale.
			product, err := tx.LockProduct(line.ProductID)
			if err != nil {
				return mapNotFound(err)
			}
			if line.Quantity > product.Stock {
				return &StockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   line.Quantity,
					Available:   product.Stock,
				}
			}

			productID := product.ID
			subtotal := product.Price * float64(line.Quantity)
			items = append(items, models.OrderItem{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductID:   &productID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
				Subtotal:    subtotal,
			})
			total += subtotal

			product.Stock -= line.Quantity
			if err := tx.SaveProduct(product); err != nil {
				return err
			}
		}

		if err := tx.CreateOrderItems(items); err != nil {
			return err
		}

		order.Total = total
		if err := tx.SaveOrder(order); err != nil {
			return err
		}
		order.Items = items

		return tx.ClearCart(cartID)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit("order_created", userID, order.ID, bson.M{
		"total": order.Total,
		"items": len(order.Items),
	})
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Float64("total", order.Total))
	return order, nil
}

// Get returns an order visible to the actor: owners see their own orders,
// admins see all.
func (s *OrderService) Get(ctx context.Context, orderID, actorID string, role models.Role) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if order.UserID != actorID && !role.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return order, nil
}

// ListForUser returns the actor's own orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]models.Order, int64, error) {
	return s.orders.List(ctx, repository.OrderFilter{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	})
}

// ListAll is the admin listing with status filter and search.
func (s *OrderService) ListAll(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(ctx, filter)
}

// Cancel is the customer-facing cancellation: owner only, pending only.
// Credits every line's quantity back to its product under row locks.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID string, role models.Role) (*models.Order, error) {
	var cancelled *models.Order
	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LockOrder(orderID)
		if err != nil {
			return mapNotFound(err)
		}
		if order.UserID != actorID && !role.IsAdmin() {
			return ErrPermissionDenied
		}
		if !order.CanCancel() {
			return &TransitionError{From: string(order.Status), To: string(models.OrderCancelled)}
		}
		if err := s.creditStock(tx, order.ID); err != nil {
			return err
		}

		now := time.Now()
		order.Status = models.OrderCancelled
		order.CancelledAt = &now
		cancelled = order
		return tx.SaveOrder(order)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit("order_cancelled", actorID, orderID, bson.M{"by_admin": role.IsAdmin()})
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("actor_id", actorID))
	return cancelled, nil
}

// UpdateStatus is the admin transition operation. Illegal moves (including
// re-cancelling a cancelled order) are rejected explicitly; a cancelled order
// is never credited twice. Moving into cancelled credits stock back, moving
// into completed stamps completed_at.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus, actorID string, role models.Role) (*models.Order, error) {
	if !role.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if !next.Valid() {
		return nil, ErrValidation
	}

	var updated *models.Order
	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LockOrder(orderID)
		if err != nil {
			return mapNotFound(err)
		}
		if !order.Status.CanTransition(next) {
			return &TransitionError{From: string(order.Status), To: string(next)}
		}

		now := time.Now()
		switch next {
		case models.OrderCancelled:
			if err := s.creditStock(tx, order.ID); err != nil {
				return err
			}
			order.CancelledAt = &now
		case models.OrderCompleted:
			order.CompletedAt = &now
		}

		order.Status = next
		updated = order
		return tx.SaveOrder(order)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit("order_status_updated", actorID, orderID, bson.M{"status": string(next)})
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(next)))
	return updated, nil
}

// QuoteEdit is one requested line change. Nil fields are left untouched.
type QuoteEdit struct {
	ItemID   string   `json:"item_id"`
	Price    *float64 `json:"price,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
}

// QuoteResult reports the outcome per line.
type QuoteResult struct {
	ItemID  string `json:"item_id"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// UpdateQuote rewrites line prices and quantities post-creation. Each line is
// validated and saved independently: valid lines are applied even when other
// lines fail, and already-applied lines are not rolled back. The order total
// is recomputed over all lines afterwards.
func (s *OrderService) UpdateQuote(ctx context.Context, orderID string, edits []QuoteEdit, actorID string, role models.Role) ([]QuoteResult, *models.Order, error) {
	if !role.IsAdmin() {
		return nil, nil, ErrPermissionDenied
	}

	results := make([]QuoteResult, 0, len(edits))
	var updated *models.Order
	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		order, err := tx.LockOrder(orderID)
		if err != nil {
			return mapNotFound(err)
		}

		items, err := tx.OrderItems(order.ID)
		if err != nil {
			return err
		}
		byID := make(map[string]*models.OrderItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		for _, edit := range edits {
			item, ok := byID[edit.ItemID]
			if !ok {
				results = append(results, QuoteResult{ItemID: edit.ItemID, Reason: "item not found"})
				continue
			}
			if edit.Price != nil && *edit.Price < 0 {
				results = append(results, QuoteResult{ItemID: edit.ItemID, Reason: "price must not be negative"})
				continue
			}
			if edit.Quantity != nil && *edit.Quantity < 1 {
				results = append(results, QuoteResult{ItemID: edit.ItemID, Reason: "quantity must be at least 1"})
				continue
			}

			if edit.Price != nil {
				item.Price = *edit.Price
			}
			if edit.Quantity != nil {
				item.Quantity = *edit.Quantity
			}
			item.Subtotal = item.Price * float64(item.Quantity)
			if err := tx.SaveOrderItem(item); err != nil {
				return err
			}
			results = append(results, QuoteResult{ItemID: edit.ItemID, Applied: true})
		}

		var total float64
		for i := range items {
			total += items[i].Subtotal
		}
		order.Total = total
		updated = order
		if err := tx.SaveOrder(order); err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.recordAudit("order_requoted", actorID, orderID, bson.M{
		"edits": len(edits),
		"total": updated.Total,
	})
	return results, updated, nil
}

// AuditTrail returns an order's recorded lifecycle events, newest first.
// Admin only. With no audit store configured the trail is empty, not an error.
func (s *OrderService) AuditTrail(ctx context.Context, orderID string, role models.Role) ([]*repository.AuditLog, error) {
	if !role.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, mapNotFound(err)
	}
	if s.audit == nil {
		return []*repository.AuditLog{}, nil
	}
	return s.audit.GetAuditLogs(ctx, orderID, 100)
}

// creditStock returns each line's quantity to its product, locking every row.
// Lines whose product was deleted are skipped.
func (s *OrderService) creditStock(tx repository.OrderTx, orderID string) error {
	items, err := tx.OrderItems(orderID)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ProductID == nil {
			continue
		}
		product, err := tx.LockProduct(*items[i].ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return err
		}
		product.Stock += items[i].Quantity
		if err := tx.SaveProduct(product); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) recordAudit(action, actorID, entityID string, data bson.M) {
	if s.audit == nil {
		return
	}
	// Audit log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.audit.CreateAuditLog(ctx, &repository.AuditLog{
			Action:   action,
			ActorID:  actorID,
			EntityID: entityID,
			Data:     data,
		}); err != nil {
			s.logger.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
		}
	}()
}
