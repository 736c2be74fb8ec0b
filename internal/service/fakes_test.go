package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/store"

	"github.com/shopspring/decimal"
)

// memRepo is an in-memory stand-in for the Postgres store
type memRepo struct {
	mu            sync.Mutex
	nextID        int64
	users         map[int64]*models.User
	products      map[int64]*models.Product
	orders        map[int64]*models.Order
	items         map[int64][]models.OrderItem
	payments      map[int64]*models.Payment
	invoices      map[int64]*models.Invoice
	notifications []models.Notification
	messages      []models.Message
	branches      map[int64]*models.Branch
	processed     map[string]bool

	failCreateOrder error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[int64]*models.User{},
		products:  map[int64]*models.Product{},
		orders:    map[int64]*models.Order{},
		items:     map[int64][]models.OrderItem{},
		payments:  map[int64]*models.Payment{},
		invoices:  map[int64]*models.Invoice{},
		branches:  map[int64]*models.Branch{},
		processed: map[string]bool{},
	}
}

func (r *memRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memRepo) addProduct(p models.Product) *models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.id()
	}
	r.products[p.ID] = &p
	return &p
}

func (r *memRepo) stock(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Stock
}

// products

func (r *memRepo) ListProducts(ctx context.Context, q store.ProductQuery) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Product{}
	for id := int64(1); id <= r.nextID; id++ {
		p, ok := r.products[id]
		if !ok {
			continue
		}
		if q.SellerID != 0 && p.SellerID != q.SellerID {
			continue
		}
		if len(q.Categories) > 0 && !inList(q.Categories, p.MainCategory) && !inList(q.Categories, p.Subcategory) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func inList(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *memRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.products[p.ID]
	if !ok || cur.SellerID != p.SellerID {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, p.ID)
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memRepo) DeleteProduct(ctx context.Context, sellerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.products[id]
	if !ok || cur.SellerID != sellerID {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, id)
	}
	delete(r.products, id)
	return nil
}

func (r *memRepo) ReserveStockTx(ctx context.Context, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return fmt.Errorf("%w: product %d", store.ErrNotFound, productID)
	}
	if p.Stock < quantity {
		return store.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (r *memRepo) ReleaseStock(ctx context.Context, productID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[productID]; ok {
		p.Stock += quantity
	}
	return nil
}

// orders

func (r *memRepo) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListOrdersByCheckoutKey(ctx context.Context, key string) ([]models.Order, error) {
	return r.listOrders(func(o *models.Order) bool { return strings.HasPrefix(o.IdempotencyKey, key+":") }), nil
}

func (r *memRepo) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateOrder != nil {
		return r.failCreateOrder
	}
	order.ID = r.id()
	order.CreatedAt = time.Now()
	for i := range items {
		items[i].ID = r.id()
		items[i].OrderID = order.ID
	}
	cp := *order
	r.orders[order.ID] = &cp
	r.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (r *memRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", store.ErrNotFound, id)
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OrderItem(nil), r.items[orderID]...), nil
}

func (r *memRepo) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return r.listOrders(func(o *models.Order) bool { return o.BuyerID == buyerID }), nil
}

func (r *memRepo) ListOrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error) {
	return r.listOrders(func(o *models.Order) bool { return o.SellerID == sellerID }), nil
}

func (r *memRepo) listOrders(keep func(*models.Order) bool) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for id := int64(1); id <= r.nextID; id++ {
		if o, ok := r.orders[id]; ok && keep(o) {
			out = append(out, *o)
		}
	}
	return out
}

func (r *memRepo) UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: order %d", store.ErrNotFound, orderID)
	}
	if o.Status != from {
		return fmt.Errorf("%w: order %d is %s", store.ErrStatusChanged, orderID, o.Status)
	}
	o.Status = to
	return nil
}

func (r *memRepo) setOrderStatus(id int64, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[id].Status = status
}

func (r *memRepo) orderStatus(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

// payments

func (r *memRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment.ID = r.id()
	cp := *payment
	r.payments[payment.ID] = &cp
	return nil
}

func (r *memRepo) UpdatePaymentStatus(ctx context.Context, paymentID int64, status, providerTxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.payments[paymentID]
	p.Status = status
	p.ProviderTxID = providerTxID
	return nil
}

func (r *memRepo) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: payment for order %d", store.ErrNotFound, orderID)
}

func (r *memRepo) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed[eventID], nil
}

func (r *memRepo) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[eventID] = true
	return nil
}

// invoices

func (r *memRepo) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cur := range r.invoices {
		if cur.OrderID == inv.OrderID && cur.Kind == inv.Kind {
			return nil
		}
	}
	inv.ID = r.id()
	inv.IssuedAt = time.Now()
	if o, ok := r.orders[inv.OrderID]; ok {
		inv.OrderNumber = o.OrderNumber
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memRepo) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %d", store.ErrNotFound, id)
	}
	cp := *inv
	return &cp, nil
}

func (r *memRepo) ListInvoicesByBuyer(ctx context.Context, buyerID int64) ([]models.Invoice, error) {
	return r.listInvoices(func(inv *models.Invoice) bool { return inv.BuyerID == buyerID }), nil
}

func (r *memRepo) ListInvoicesBySeller(ctx context.Context, sellerID int64) ([]models.Invoice, error) {
	return r.listInvoices(func(inv *models.Invoice) bool { return inv.SellerID == sellerID }), nil
}

func (r *memRepo) listInvoices(keep func(*models.Invoice) bool) []models.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Invoice{}
	for id := int64(1); id <= r.nextID; id++ {
		if inv, ok := r.invoices[id]; ok && keep(inv) {
			out = append(out, *inv)
		}
	}
	return out
}

func (r *memRepo) MarkInvoicePaid(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.Status != models.InvoiceStatusDue {
		return fmt.Errorf("%w: due invoice %d", store.ErrNotFound, id)
	}
	now := time.Now()
	inv.Status = models.InvoiceStatusPaid
	inv.PaidAt = &now
	return nil
}

// notifications and messages

func (r *memRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = r.id()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *memRepo) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memRepo) MarkNotificationsRead(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

func (r *memRepo) notificationsFor(userID int64) []models.Notification {
	list, _ := r.ListNotifications(context.Background(), userID)
	return list
}

func (r *memRepo) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Message{}
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.id()
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, *m)
	return nil
}

// users and branches

func (r *memRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.User{}
	for id := int64(1); id <= r.nextID; id++ {
		if u, ok := r.users[id]; ok && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memRepo) addUser(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.id()
	r.users[u.ID] = &u
	return &u
}

func (r *memRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[u.ID]
	if !ok {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, u.ID)
	}
	cur.DisplayName, cur.CompanyName, cur.Phone, cur.City = u.DisplayName, u.CompanyName, u.Phone, u.City
	return nil
}

func (r *memRepo) ListBranches(ctx context.Context, sellerID int64) ([]models.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Branch{}
	for _, b := range r.branches {
		if b.SellerID == sellerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memRepo) CreateBranch(ctx context.Context, b *models.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.id()
	cp := *b
	r.branches[b.ID] = &cp
	return nil
}

func (r *memRepo) DeleteBranch(ctx context.Context, sellerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id]
	if !ok || b.SellerID != sellerID {
		return fmt.Errorf("%w: branch %d", store.ErrNotFound, id)
	}
	delete(r.branches, id)
	return nil
}

// recordingPublisher captures every event the services publish
type recordingPublisher struct {
	mu        sync.Mutex
	placed    []*models.OrderPlacedEvent
	succeeded []*models.PaymentSucceededEvent
	failed    []*models.PaymentFailedEvent
	cancelled []*models.OrderCancelledEvent
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentSucceeded(ctx context.Context, e *models.PaymentSucceededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.succeeded = append(p.succeeded, e)
	return nil
}

func (p *recordingPublisher) PublishPaymentFailed(ctx context.Context, e *models.PaymentFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return nil
}

func (p *recordingPublisher) PublishOrderCancelled(ctx context.Context, e *models.OrderCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, e)
	return nil
}

// memLocker is a process-local Locker
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (l *memLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) ReleaseLock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
