package layout

import (
	"context"
	"sync"

	"marketplace/internal/cart"
	"marketplace/internal/models"
	"marketplace/internal/router"
)

// WidgetListener is the name the cart widget registers under with the
// navigator and the cart store
const WidgetListener = "cart-widget"

// hiddenOn lists routes where the floating cart would duplicate the page
var hiddenOn = map[string]bool{
	"/buyer/cart":     true,
	"/buyer/checkout": true,
}

// CartSummary is what the floating cart widget displays
type CartSummary struct {
	Count   int    `json:"count"`
	Total   string `json:"total"`
	Visible bool   `json:"visible"`
}

// CartWidget keeps the buyer's floating cart summary current by listening
// to route changes and cart events, and fans snapshots out to watchers
// (one per open websocket).
type CartWidget struct {
	mu      sync.Mutex
	role    models.Role
	path    string
	count   int
	total   string
	nextID  int
	watches map[int]chan CartSummary
}

// NewCartWidget creates a widget for a session with role
func NewCartWidget(role models.Role) *CartWidget {
	return &CartWidget{
		role:    role,
		total:   "0.00",
		watches: make(map[int]chan CartSummary),
	}
}

// Attach subscribes the widget to nav and store and loads the current cart
func (w *CartWidget) Attach(ctx context.Context, nav *router.Navigator, store *cart.Store) {
	nav.Subscribe(WidgetListener, w.onRoute)
	store.AddListener(WidgetListener, w.onCart)

	items := store.Items(ctx)
	w.mu.Lock()
	w.path = nav.Current()
	w.count = cart.Count(items)
	w.total = cart.Total(items).StringFixed(2)
	w.mu.Unlock()
}

// Detach removes the widget's subscriptions and closes all watchers
func (w *CartWidget) Detach(nav *router.Navigator, store *cart.Store) {
	nav.Unsubscribe(WidgetListener)
	store.RemoveListener(WidgetListener)

	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.watches {
		close(ch)
		delete(w.watches, id)
	}
}

// SetRole changes the session role, which decides visibility
func (w *CartWidget) SetRole(role models.Role) {
	w.mu.Lock()
	w.role = role
	w.mu.Unlock()
	w.publish()
}

// Summary returns the current snapshot
func (w *CartWidget) Summary() CartSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summaryLocked()
}

// Watch returns a channel receiving every new snapshot. Slow readers only
// see the latest one. The returned func stops the watch.
func (w *CartWidget) Watch() (<-chan CartSummary, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan CartSummary, 1)
	ch <- w.summaryLocked()
	w.watches[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.watches[id]; ok {
			close(c)
			delete(w.watches, id)
		}
	}
}

func (w *CartWidget) onRoute(change router.RouteChange) {
	if change.State != router.StateSettled {
		return
	}
	w.mu.Lock()
	w.path = change.Path
	w.mu.Unlock()
	w.publish()
}

func (w *CartWidget) onCart(event cart.Event) {
	w.mu.Lock()
	w.count = cart.Count(event.Items)
	w.total = cart.Total(event.Items).StringFixed(2)
	w.mu.Unlock()
	w.publish()
}

func (w *CartWidget) summaryLocked() CartSummary {
	return CartSummary{
		Count:   w.count,
		Total:   w.total,
		Visible: w.role == models.RoleBuyer && !hiddenOn[w.path],
	}
}

func (w *CartWidget) publish() {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.summaryLocked()
	for _, ch := range w.watches {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
