package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// SessionCartStore is the Redis-backed home of anonymous carts.
type SessionCartStore interface {
	SessionCart(ctx context.Context, sessionKey string) (models.SessionCart, error)
	SaveSessionCart(ctx context.Context, sessionKey string, cart models.SessionCart) error
	DeleteSessionCart(ctx context.Context, sessionKey string) error
}

// CartService owns cart mutation and stock validation. Stock is checked at
// mutation time and again at checkout; nothing is reserved while an item sits
// in a cart, so lines can go stale and ValidateAll exists to reconcile them.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	sessions SessionCartStore
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, sessions SessionCartStore, logger *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		sessions: sessions,
		logger:   logger,
	}
}

// Get returns the user's cart with lines, live subtotals and total.
func (s *CartService) Get(ctx context.Context, userID string) (*models.Cart, error) {
	return s.carts.GetOrCreateByUser(ctx, userID)
}

// Add creates or increments a line. The cumulative quantity (existing + qty)
// may not exceed current stock.
func (s *CartService) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrValidation
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return mapNotFound(err)
	}
	if !product.Available {
		return &StockError{ProductID: product.ID, ProductName: product.Name, Requested: qty, Available: 0}
	}

	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return err
	}

	existing := 0
	item, err := s.carts.GetItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		existing = item.Quantity
	case errors.Is(err, repository.ErrNotFound):
		item = &models.CartItem{CartID: cart.ID, ProductID: productID}
	default:
		return err
	}

	if existing+qty > product.Stock {
		return &StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   existing + qty,
			Available:   product.Stock,
		}
	}

	item.Quantity = existing + qty
	return s.carts.SaveItem(ctx, item)
}

// Update overwrites a line's quantity. Zero or negative removes the line.
func (s *CartService) Update(ctx context.Context, userID, productID string, qty int) error {
	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return err
	}

	if qty <= 0 {
		return s.carts.DeleteItem(ctx, cart.ID, productID)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return mapNotFound(err)
	}
	if qty > product.Stock {
		return &StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Stock,
		}
	}

	item, err := s.carts.GetItem(ctx, cart.ID, productID)
	if errors.Is(err, repository.ErrNotFound) {
		item = &models.CartItem{CartID: cart.ID, ProductID: productID}
	} else if err != nil {
		return err
	}

	item.Quantity = qty
	return s.carts.SaveItem(ctx, item)
}

// Remove deletes a line. Removing an absent line is a no-op.
func (s *CartService) Remove(ctx context.Context, userID, productID string) error {
	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.carts.DeleteItem(ctx, cart.ID, productID)
}

// Clear removes every line.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.carts.Clear(ctx, cart.ID)
}

// InvalidLine describes a cart line whose quantity exceeded live stock and how
// it was resolved.
type InvalidLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Removed     bool   `json:"removed"`
}

// ValidateAll reconciles stale lines against live stock: lines over stock are
// clamped to what remains, lines over zero stock are deleted.
func (s *CartService) ValidateAll(ctx context.Context, userID string) ([]InvalidLine, error) {
	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	var invalid []InvalidLine
	for i := range items {
		item := &items[i]
		if item.Product == nil || item.Quantity <= item.Product.Stock {
			continue
		}

		line := InvalidLine{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Requested:   item.Quantity,
			Available:   item.Product.Stock,
		}
		if item.Product.Stock > 0 {
			item.Quantity = item.Product.Stock
			if err := s.carts.SaveItem(ctx, item); err != nil {
				return nil, err
			}
		} else {
			line.Removed = true
			if err := s.carts.DeleteItem(ctx, cart.ID, item.ProductID); err != nil {
				return nil, err
			}
		}
		invalid = append(invalid, line)
	}
	return invalid, nil
}

// CleanUnavailable drops lines whose product is gone, unavailable or out of
// stock, returning how many were removed.
func (s *CartService) CleanUnavailable(ctx context.Context, userID string) (int, error) {
	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := range items {
		item := &items[i]
		if item.Product != nil && item.Product.Available && item.Product.Stock > 0 {
			continue
		}
		if err := s.carts.DeleteItem(ctx, cart.ID, item.ProductID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// --- anonymous session carts ---

// SessionGet prices a session cart against the live catalog. Lines whose
// product has vanished are skipped, mirroring the DB cart's preload behavior.
func (s *CartService) SessionGet(ctx context.Context, sessionKey string) (*models.Cart, error) {
	sc, err := s.sessions.SessionCart(ctx, sessionKey)
	if err != nil {
		return nil, err
	}

	cart := &models.Cart{ID: sessionKey}
	for productID, qty := range sc {
		product, err := s.products.GetByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, models.CartItem{
			CartID:    sessionKey,
			ProductID: productID,
			Product:   product,
			Quantity:  qty,
		})
	}
	return cart, nil
}

// SessionAdd mirrors Add for anonymous shoppers.
func (s *CartService) SessionAdd(ctx context.Context, sessionKey, productID string, qty int) error {
	if qty < 1 {
		return ErrValidation
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return mapNotFound(err)
	}
	if !product.Available {
		return &StockError{ProductID: product.ID, ProductName: product.Name, Requested: qty, Available: 0}
	}

	sc, err := s.sessions.SessionCart(ctx, sessionKey)
	if err != nil {
		return err
	}
	if sc[productID]+qty > product.Stock {
		return &StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   sc[productID] + qty,
			Available:   product.Stock,
		}
	}
	sc[productID] += qty
	return s.sessions.SaveSessionCart(ctx, sessionKey, sc)
}

// SessionUpdate mirrors Update for anonymous shoppers.
func (s *CartService) SessionUpdate(ctx context.Context, sessionKey, productID string, qty int) error {
	sc, err := s.sessions.SessionCart(ctx, sessionKey)
	if err != nil {
		return err
	}
	if qty <= 0 {
		delete(sc, productID)
		return s.sessions.SaveSessionCart(ctx, sessionKey, sc)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return mapNotFound(err)
	}
	if qty > product.Stock {
		return &StockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Stock,
		}
	}
	sc[productID] = qty
	return s.sessions.SaveSessionCart(ctx, sessionKey, sc)
}

// SessionRemove mirrors Remove for anonymous shoppers.
func (s *CartService) SessionRemove(ctx context.Context, sessionKey, productID string) error {
	sc, err := s.sessions.SessionCart(ctx, sessionKey)
	if err != nil {
		return err
	}
	delete(sc, productID)
	return s.sessions.SaveSessionCart(ctx, sessionKey, sc)
}

// SessionClear drops the whole anonymous cart.
func (s *CartService) SessionClear(ctx context.Context, sessionKey string) error {
	return s.sessions.DeleteSessionCart(ctx, sessionKey)
}

// MergeSessionCart folds an anonymous cart into the user's persistent cart at
// login: quantities are summed, capped at current stock, and the session cart
// is deleted afterwards. Vanished products are skipped silently.
func (s *CartService) MergeSessionCart(ctx context.Context, sessionKey, userID string) error {
	sc, err := s.sessions.SessionCart(ctx, sessionKey)
	if err != nil {
		return err
	}
	if len(sc) == 0 {
		return nil
	}

	cart, err := s.carts.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	for productID, qty := range sc {
		product, err := s.products.GetByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		item, err := s.carts.GetItem(ctx, cart.ID, productID)
		if errors.Is(err, repository.ErrNotFound) {
			item = &models.CartItem{CartID: cart.ID, ProductID: productID}
		} else if err != nil {
			return err
		}

		item.Quantity += qty
		if item.Quantity > product.Stock {
			item.Quantity = product.Stock
		}
		if item.Quantity < 1 {
			continue
		}
		if err := s.carts.SaveItem(ctx, item); err != nil {
			return err
		}
	}

	if err := s.sessions.DeleteSessionCart(ctx, sessionKey); err != nil {
		return err
	}
	s.logger.Info("Session cart merged",
		zap.String("user_id", userID),
		zap.Int("lines", len(sc)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
