package session

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/view"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(mem *cart.MemoryStorage) *Manager {
	return NewManager(mem, router.New("/market"), "cart:", time.Hour)
}

func TestOpenCreatesOnceAndReusesID(t *testing.T) {
	ctx := context.Background()
	m := newManager(cart.NewMemoryStorage())

	s, created := m.Open(ctx, "not-a-uuid")
	require.True(t, created)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "cart:"+s.ID, s.Cart.Key())

	again, created := m.Open(ctx, s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.Len())

	id := uuid.New().String()
	restored, created := m.Open(ctx, id)
	assert.True(t, created)
	assert.Equal(t, id, restored.ID)
}

func TestSetUserDrivesRoleAndWidget(t *testing.T) {
	ctx := context.Background()
	m := newManager(cart.NewMemoryStorage())
	s, _ := m.Open(ctx, "")

	assert.Equal(t, models.RoleGuest, s.Role())
	assert.Nil(t, s.User())
	assert.False(t, s.Widget.Summary().Visible)

	s.SetUser(&models.User{ID: 1, Role: models.RoleBuyer})
	assert.Equal(t, models.RoleBuyer, s.Role())
	assert.True(t, s.Widget.Summary().Visible)

	s.SetUser(&models.User{ID: 2, Role: models.RoleSeller})
	assert.False(t, s.Widget.Summary().Visible)
}

func TestWidgetFollowsSessionCart(t *testing.T) {
	ctx := context.Background()
	m := newManager(cart.NewMemoryStorage())
	s, _ := m.Open(ctx, "")
	s.SetUser(&models.User{ID: 1, Role: models.RoleBuyer})

	require.NoError(t, s.Cart.Add(ctx, cart.LineItem{ProductID: 1, SellerID: 2, UnitPrice: decimal.NewFromInt(4)}, 3))

	sum := s.Widget.Summary()
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, "12.00", sum.Total)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	m := newManager(cart.NewMemoryStorage())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, _ := m.Open(ctx, "")
	now = now.Add(50 * time.Minute)
	active, _ := m.Open(ctx, "")

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)
	assert.Zero(t, idle.Cart.ListenerCount())
}

func TestRemoveKeepsPersistedCart(t *testing.T) {
	ctx := context.Background()
	mem := cart.NewMemoryStorage()
	m := newManager(mem)
	s, _ := m.Open(ctx, "")
	require.NoError(t, s.Cart.Add(ctx, cart.LineItem{ProductID: 1, UnitPrice: decimal.NewFromInt(1)}, 1))

	m.Remove(s.ID)
	assert.Zero(t, m.Len())

	back, created := m.Open(ctx, s.ID)
	assert.True(t, created)
	assert.Equal(t, 1, back.Cart.Count(ctx))
}

func TestExternalCartWriteReachesSession(t *testing.T) {
	mem := cart.NewMemoryStorage()
	m := newManager(mem)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, _ := m.Open(ctx, "")
	s.SetUser(&models.User{ID: 1, Role: models.RoleBuyer})

	done := make(chan error, 1)
	go func() { done <- m.WatchCartChanges(ctx, mem) }()

	// another instance writing the same cart key
	other := cart.NewStore(mem.Peer(), s.Cart.Key())
	item := cart.LineItem{ProductID: 9, SellerID: 2, UnitPrice: decimal.NewFromInt(2)}
	require.Eventually(t, func() bool {
		_ = other.Add(ctx, item, 1)
		return s.Widget.Summary().Count > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestContextRoundTrip(t *testing.T) {
	m := newManager(cart.NewMemoryStorage())
	s, _ := m.Open(context.Background(), "")

	ctx := WithSession(context.Background(), s)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestWidgetHiddenOnCartPage(t *testing.T) {
	ctx := context.Background()
	r := router.New("/market")
	r.Register("/buyer/cart", func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		return &view.Fragment{Title: "Cart"}, nil
	})
	m := NewManager(cart.NewMemoryStorage(), r, "cart:", time.Hour)
	s, _ := m.Open(ctx, "")
	s.SetUser(&models.User{ID: 1, Role: models.RoleBuyer})

	_, err := s.Nav.Navigate(ctx, "/buyer/cart")
	require.NoError(t, err)
	assert.False(t, s.Widget.Summary().Visible)
}
