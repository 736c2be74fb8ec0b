package layout

import (
	"context"
	"testing"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/models"
	"marketplace/internal/router"
	"marketplace/internal/view"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgetFixture(t *testing.T) (*CartWidget, *router.Navigator, *cart.Store) {
	t.Helper()
	r := router.New("")
	page := func(ctx context.Context, req *router.Request) (*view.Fragment, error) {
		return &view.Fragment{Title: req.Path}, nil
	}
	for _, p := range []string{"/buyer/catalog", "/buyer/cart", "/buyer/checkout"} {
		r.Register(p, page)
	}

	nav := router.NewNavigator(r)
	store := cart.NewStore(cart.NewMemoryStorage(), "cart:test")
	w := NewCartWidget(models.RoleBuyer)
	w.Attach(context.Background(), nav, store)
	return w, nav, store
}

func TestWidgetTracksCart(t *testing.T) {
	ctx := context.Background()
	w, _, store := widgetFixture(t)

	assert.Equal(t, CartSummary{Count: 0, Total: "0.00", Visible: true}, w.Summary())

	require.NoError(t, store.Add(ctx, cart.LineItem{ProductID: 1, UnitPrice: decimal.NewFromInt(10)}, 2))
	require.NoError(t, store.Add(ctx, cart.LineItem{ProductID: 2, UnitPrice: decimal.NewFromInt(5)}, 3))
	assert.Equal(t, 5, w.Summary().Count)
	assert.Equal(t, "35.00", w.Summary().Total)

	require.NoError(t, store.Clear(ctx))
	assert.Zero(t, w.Summary().Count)
}

func TestWidgetHiddenOnCartAndCheckout(t *testing.T) {
	ctx := context.Background()
	w, nav, _ := widgetFixture(t)

	_, err := nav.Navigate(ctx, "/buyer/cart")
	require.NoError(t, err)
	assert.False(t, w.Summary().Visible)

	_, err = nav.Navigate(ctx, "/buyer/checkout")
	require.NoError(t, err)
	assert.False(t, w.Summary().Visible)

	_, err = nav.Navigate(ctx, "/buyer/catalog")
	require.NoError(t, err)
	assert.True(t, w.Summary().Visible)
}

func TestWidgetOnlyForBuyers(t *testing.T) {
	w, _, _ := widgetFixture(t)

	w.SetRole(models.RoleSeller)
	assert.False(t, w.Summary().Visible)
	w.SetRole(models.RoleBuyer)
	assert.True(t, w.Summary().Visible)
}

func TestWidgetWatchDeliversLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	w, _, store := widgetFixture(t)

	ch, stop := w.Watch()
	defer stop()
	assert.Equal(t, 0, (<-ch).Count)

	// two writes without a read: only the latest is buffered
	require.NoError(t, store.Add(ctx, cart.LineItem{ProductID: 1, UnitPrice: decimal.NewFromInt(1)}, 1))
	require.NoError(t, store.Add(ctx, cart.LineItem{ProductID: 1, UnitPrice: decimal.NewFromInt(1)}, 1))

	select {
	case s := <-ch:
		assert.Equal(t, 2, s.Count)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestWidgetDetachClosesWatchers(t *testing.T) {
	ctx := context.Background()
	w, nav, store := widgetFixture(t)
	ch, _ := w.Watch()
	<-ch

	w.Detach(nav, store)
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, store.ListenerCount())

	// later cart writes no longer reach the widget
	require.NoError(t, store.Add(ctx, cart.LineItem{ProductID: 1, UnitPrice: decimal.NewFromInt(1)}, 1))
	assert.Zero(t, w.Summary().Count)
}
