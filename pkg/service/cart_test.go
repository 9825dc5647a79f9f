package service

import (
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memProducts struct {
	products map[string]*models.Product
}

func (m *memProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) List(_ context.Context, _ repository.ProductFilter) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	delete(m.products, id)
	return nil
}

func (m *memProducts) Categories(_ context.Context) ([]models.Category, error) {
	return nil, nil
}

func (m *memProducts) AddImage(_ context.Context, _ *models.ProductImage) error { return nil }

func (m *memProducts) DeleteImage(_ context.Context, _, _ string) error { return nil }

type memCarts struct {
	products *memProducts
	carts    map[string]*models.Cart
	items    map[string]*models.CartItem
}

func newMemCarts(products *memProducts) *memCarts {
	return &memCarts{
		products: products,
		carts:    make(map[string]*models.Cart),
		items:    make(map[string]*models.CartItem),
	}
}

func (m *memCarts) GetOrCreateByUser(_ context.Context, userID string) (*models.Cart, error) {
	if cart, ok := m.carts[userID]; ok {
		return cart, nil
	}
	cart := &models.Cart{ID: "cart-" + userID, UserID: userID}
	m.carts[userID] = cart
	return cart, nil
}

func (m *memCarts) GetItem(_ context.Context, cartID, productID string) (*models.CartItem, error) {
	item, ok := m.items[cartID+"|"+productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return item, nil
}

func (m *memCarts) SaveItem(_ context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = "item-" + item.ProductID
	}
	m.items[item.CartID+"|"+item.ProductID] = item
	return nil
}

func (m *memCarts) DeleteItem(_ context.Context, cartID, productID string) error {
	delete(m.items, cartID+"|"+productID)
	return nil
}

func (m *memCarts) Items(_ context.Context, cartID string) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range m.items {
		if item.CartID != cartID {
			continue
		}
		copied := *item
		copied.Product = m.products.products[item.ProductID]
		out = append(out, copied)
	}
	return out, nil
}

func (m *memCarts) Clear(_ context.Context, cartID string) error {
	for key, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, key)
		}
	}
	return nil
}

type memSessions struct {
	carts map[string]models.SessionCart
}

func newMemSessions() *memSessions {
	return &memSessions{carts: make(map[string]models.SessionCart)}
}

func (m *memSessions) SessionCart(_ context.Context, key string) (models.SessionCart, error) {
	if sc, ok := m.carts[key]; ok {
		return sc, nil
	}
	return models.SessionCart{}, nil
}

func (m *memSessions) SaveSessionCart(_ context.Context, key string, sc models.SessionCart) error {
	m.carts[key] = sc
	return nil
}

func (m *memSessions) DeleteSessionCart(_ context.Context, key string) error {
	delete(m.carts, key)
	return nil
}

func newCartFixture() (*CartService, *memProducts, *memCarts, *memSessions) {
	products := &memProducts{products: map[string]*models.Product{
		"p1": {ID: "p1", Name: "Keyboard", Slug: "keyboard", Price: 49.90, Stock: 5, Available: true},
		"p2": {ID: "p2", Name: "Mouse", Slug: "mouse", Price: 19.90, Stock: 0, Available: true},
		"p3": {ID: "p3", Name: "Webcam", Slug: "webcam", Price: 89.00, Stock: 10, Available: false},
	}}
	carts := newMemCarts(products)
	sessions := newMemSessions()
	svc := NewCartService(carts, products, sessions, zap.NewNop())
	return svc, products, carts, sessions
}

func TestCartAddChecksCumulativeStock(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "p1", 3))

	// 3 already in the cart, 3 more would exceed stock of 5.
	err := svc.Add(ctx, "u1", "p1", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	// Topping up within stock still works.
	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))

	cart, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cart-u1", cart.ID)
}

func TestCartAddRejectsUnavailableAndMissing(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	err := svc.Add(ctx, "u1", "p3", 1)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	err = svc.Add(ctx, "u1", "missing", 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = svc.Add(ctx, "u1", "p1", 0)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCartUpdateQuantity(t *testing.T) {
	svc, _, carts, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "p1", 2))
	require.NoError(t, svc.Update(ctx, "u1", "p1", 4))

	item, err := carts.GetItem(ctx, "cart-u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	// Over stock is refused, the line is untouched.
	err = svc.Update(ctx, "u1", "p1", 9)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	item, err = carts.GetItem(ctx, "cart-u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	// Zero removes the line.
	require.NoError(t, svc.Update(ctx, "u1", "p1", 0))
	_, err = carts.GetItem(ctx, "cart-u1", "p1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCartRemoveIsIdempotent(t *testing.T) {
	svc, _, _, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "p1", 1))
	require.NoError(t, svc.Remove(ctx, "u1", "p1"))
	require.NoError(t, svc.Remove(ctx, "u1", "p1"))
	require.NoError(t, svc.Remove(ctx, "u1", "never-added"))
}

func TestValidateAllClampsAndRemoves(t *testing.T) {
	svc, products, carts, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "p1", 5))

	// Stock drops after the line was added.
	products.products["p1"].Stock = 2

	invalid, err := svc.ValidateAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.Equal(t, "p1", invalid[0].ProductID)
	assert.Equal(t, 5, invalid[0].Requested)
	assert.Equal(t, 2, invalid[0].Available)
	assert.False(t, invalid[0].Removed)

	item, err := carts.GetItem(ctx, "cart-u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	// Stock hits zero, the line is removed instead of clamped.
	products.products["p1"].Stock = 0
	invalid, err = svc.ValidateAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, invalid, 1)
	assert.True(t, invalid[0].Removed)

	_, err = carts.GetItem(ctx, "cart-u1", "p1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCleanUnavailable(t *testing.T) {
	svc, products, carts, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "p1", 1))

	products.products["p1"].Available = false

	removed, err := svc.CleanUnavailable(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = carts.GetItem(ctx, "cart-u1", "p1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestSessionCartLifecycle(t *testing.T) {
	svc, _, _, sessions := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.SessionAdd(ctx, "sess-1", "p1", 2))
	require.NoError(t, svc.SessionAdd(ctx, "sess-1", "p1", 2))

	// Cumulative stock check applies to session carts too.
	err := svc.SessionAdd(ctx, "sess-1", "p1", 2)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	cart, err := svc.SessionGet(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.InDelta(t, 4*49.90, cart.Total(), 0.001)

	require.NoError(t, svc.SessionUpdate(ctx, "sess-1", "p1", 1))
	require.NoError(t, svc.SessionRemove(ctx, "sess-1", "p1"))
	require.NoError(t, svc.SessionClear(ctx, "sess-1"))
	assert.Empty(t, sessions.carts)
}

func TestMergeSessionCartCapsAtStock(t *testing.T) {
	svc, _, carts, sessions := newCartFixture()
	ctx := context.Background()

	// 3 in the account cart, 4 in the anonymous cart, stock is 5.
	require.NoError(t, svc.Add(ctx, "u1", "p1", 3))
	sessions.carts["sess-1"] = models.SessionCart{"p1": 4, "gone": 2}

	require.NoError(t, svc.MergeSessionCart(ctx, "sess-1", "u1"))

	item, err := carts.GetItem(ctx, "cart-u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	// Vanished products are skipped and the session cart is gone.
	_, hasSession := sessions.carts["sess-1"]
	assert.False(t, hasSession)
}

func TestMergeSessionCartEmptyIsNoop(t *testing.T) {
	svc, _, carts, _ := newCartFixture()
	ctx := context.Background()

	require.NoError(t, svc.MergeSessionCart(ctx, "sess-none", "u1"))
	assert.Empty(t, carts.items)
}
