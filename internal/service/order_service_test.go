package service

import (
	"context"
	"testing"

	"marketplace/internal/cart"
	"marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	repo      *memRepo
	publisher *recordingPublisher
	locker    *memLocker
	svc       *OrderService
	cart      *cart.Store
	steel     *models.Product
	rice      *models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	repo := newMemRepo()
	f := &orderFixture{
		repo:      repo,
		publisher: &recordingPublisher{},
		locker:    newMemLocker(),
		cart:      cart.NewStore(cart.NewMemoryStorage(), "cart:1"),
	}
	f.steel = repo.addProduct(models.Product{SellerID: 2, SellerName: "Acme", Name: "Rebar", Price: dec("10"), MinOrderQty: 1, Stock: 100})
	f.rice = repo.addProduct(models.Product{SellerID: 3, SellerName: "Farms", Name: "Rice", Price: dec("5"), MinOrderQty: 1, Stock: 10})

	f.svc = NewOrderService(repo, NewStockService(repo), f.publisher, f.locker, PricingConfig{
		TaxRate:        dec("0.10"),
		DepositOptions: []int{30, 50, 100},
	})
	return f
}

func (f *orderFixture) add(t *testing.T, p *models.Product, qty int) {
	t.Helper()
	require.NoError(t, f.cart.Add(context.Background(), cart.LineItem{
		ProductID:   p.ID,
		Name:        p.Name,
		SellerID:    p.SellerID,
		SellerName:  p.SellerName,
		UnitPrice:   p.Price,
		MinOrderQty: p.MinOrderQty,
	}, qty))
}

func TestCheckoutPlacesOneOrderPerSeller(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 10)
	f.add(t, f.rice, 3)

	res, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30, IdempotencyKey: "k1"})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)

	first := res.Orders[0]
	assert.Equal(t, int64(2), first.SellerID)
	assert.Equal(t, models.OrderStatusPendingPayment, first.Status)
	assert.True(t, dec("110").Equal(first.Total), first.Total.String())
	assert.Equal(t, "33.00", first.DepositAmount.StringFixed(2))
	assert.Equal(t, "77.00", first.RemainingBalance.StringFixed(2))
	assert.Equal(t, "k1:2", first.IdempotencyKey)
	assert.Contains(t, first.OrderNumber, "ORD-")

	assert.Equal(t, 90, f.repo.stock(f.steel.ID))
	assert.Equal(t, 7, f.repo.stock(f.rice.ID))
	assert.Len(t, f.publisher.placed, 2)
	assert.Empty(t, f.cart.Items(ctx))
}

func TestCheckoutReplayReturnsOriginalOrders(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 10)

	first, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 50, IdempotencyKey: "same"})
	require.NoError(t, err)

	again, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 50, IdempotencyKey: "same"})
	require.NoError(t, err)
	require.Len(t, again.Orders, 1)
	assert.Equal(t, first.Orders[0].ID, again.Orders[0].ID)
	assert.Equal(t, 90, f.repo.stock(f.steel.ID))
	assert.Len(t, f.publisher.placed, 1)
}

func TestCheckoutOutOfStockKeepsCartAndStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.rice, 11)

	_, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 10, f.repo.stock(f.rice.ID))
	assert.Len(t, f.cart.Items(ctx), 1)
	assert.Empty(t, f.publisher.placed)
}

func TestCheckoutReleasesStockWhenOrderCannotBeStored(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.repo.failCreateOrder = assert.AnError
	f.add(t, f.steel, 5)

	_, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 100, f.repo.stock(f.steel.ID))
	assert.Len(t, f.cart.Items(ctx), 1)
}

func TestCheckoutRejectsConcurrentAttempt(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 1)

	ok, _ := f.locker.AcquireLock(ctx, "checkout:"+f.cart.Key(), 0)
	require.True(t, ok)

	_, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
}

func TestCheckoutRejectsUnofferedDepositAndEmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	_, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.add(t, f.steel, 1)
	_, err = f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 40})
	assert.ErrorIs(t, err, ErrInvalidDeposit)
}

func TestGetOrderVisibility(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 2)
	res, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 100})
	require.NoError(t, err)
	id := res.Orders[0].ID

	detail, err := f.svc.GetOrder(ctx, &models.User{ID: 1, Role: models.RoleBuyer}, id)
	require.NoError(t, err)
	assert.Len(t, detail.Items, 1)

	_, err = f.svc.GetOrder(ctx, &models.User{ID: 2, Role: models.RoleSeller}, id)
	assert.NoError(t, err)
	_, err = f.svc.GetOrder(ctx, &models.User{ID: 9, Role: models.RoleBuyer}, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetOrder(ctx, &models.User{ID: 3, Role: models.RoleSeller}, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetOrder(ctx, &models.User{ID: 4, Role: models.RoleAdmin}, id)
	assert.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 4)
	res, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	require.NoError(t, err)
	id := res.Orders[0].ID

	err = f.svc.UpdateStatus(ctx, 2, id, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = f.svc.UpdateStatus(ctx, 3, id, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.UpdateStatus(ctx, 2, id, models.OrderStatusCancelled))
	assert.Equal(t, models.OrderStatusCancelled, f.repo.orderStatus(id))
	assert.Equal(t, 100, f.repo.stock(f.steel.ID))
	assert.Empty(t, NextStatuses(models.OrderStatusCancelled))
}

func TestShippingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.add(t, f.steel, 1)
	res, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
	require.NoError(t, err)
	id := res.Orders[0].ID

	f.repo.setOrderStatus(id, models.OrderStatusConfirmed)
	require.NoError(t, f.svc.UpdateStatus(ctx, 2, id, models.OrderStatusShipped))
	require.NoError(t, f.svc.UpdateStatus(ctx, 2, id, models.OrderStatusDelivered))
	assert.Equal(t, models.OrderStatusDelivered, f.repo.orderStatus(id))
}

func TestListBuyerOrdersFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	for i := 0; i < 3; i++ {
		f.add(t, f.steel, 1)
		f.add(t, f.rice, 1)
		_, err := f.svc.Checkout(ctx, &CheckoutRequest{BuyerID: 1, Cart: f.cart, DepositPercent: 30})
		require.NoError(t, err)
	}

	page, err := f.svc.ListBuyerOrders(ctx, 1, OrderFilter{Search: "farms", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasNext())

	page, err = f.svc.ListBuyerOrders(ctx, 1, OrderFilter{Status: models.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
