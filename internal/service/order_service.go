package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/cart"
	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for records that do not exist or belong to someone else
	ErrNotFound           = store.ErrNotFound
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrInvalidTransition  = errors.New("order status change not allowed")
)

const checkoutLockTTL = 30 * time.Second

// OrderRepository is the slice of the store orders need
type OrderRepository interface {
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrdersByCheckoutKey(ctx context.Context, key string) ([]models.Order, error)
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error
}

// OrderPublisher publishes checkout events
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// Locker serializes checkouts of one cart across server instances
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// PricingConfig carries the business rules checkout applies
type PricingConfig struct {
	TaxRate        decimal.Decimal
	DepositOptions []int
}

// OrderService handles checkout and order lifecycle
type OrderService struct {
	repo      OrderRepository
	stock     *StockService
	publisher OrderPublisher
	locker    Locker
	pricing   PricingConfig
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	repo OrderRepository,
	stock *StockService,
	publisher OrderPublisher,
	locker Locker,
	pricing PricingConfig,
) *OrderService {
	return &OrderService{
		repo:      repo,
		stock:     stock,
		publisher: publisher,
		locker:    locker,
		pricing:   pricing,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest is a buyer's request to turn the cart into orders
type CheckoutRequest struct {
	BuyerID        int64
	Cart           *cart.Store
	DepositPercent int
	IdempotencyKey string
}

// CheckoutResult lists the orders created (or found, on a retried request)
type CheckoutResult struct {
	Orders []models.Order
	Quote  *Quote
}

// Quote prices a cart without placing anything
func (s *OrderService) Quote(items []cart.LineItem, depositPercent int) (*Quote, error) {
	if !AllowedDeposit(s.pricing.DepositOptions, depositPercent) {
		return nil, ErrInvalidDeposit
	}
	return QuoteCart(items, s.pricing.TaxRate, depositPercent)
}

// Checkout places one order per seller in the cart. The cart is cleared only
// after every order is stored. Replaying the same idempotency key returns the
// orders placed the first time.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	lockKey := "checkout:" + req.Cart.Key()
	ok, err := s.locker.AcquireLock(ctx, lockKey, checkoutLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), lockKey); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	items, err := req.Cart.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	quote, err := s.Quote(items, req.DepositPercent)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			existing, lookupErr := s.replayed(ctx, req.IdempotencyKey)
			if lookupErr == nil && len(existing) > 0 {
				return &CheckoutResult{Orders: existing}, nil
			}
		}
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	result := &CheckoutResult{Quote: quote}
	for _, sq := range quote.Orders {
		order, err := s.placeSellerOrder(ctx, req, quote.DepositPercent, sq)
		if err != nil {
			return nil, err
		}
		result.Orders = append(result.Orders, *order)
	}

	if err := req.Cart.Clear(ctx); err != nil {
		s.logger.Error("Orders placed but cart could not be cleared",
			zap.String("cart", req.Cart.Key()),
			zap.Error(err))
	}

	return result, nil
}

// replayed finds the orders an earlier attempt with key already placed
func (s *OrderService) replayed(ctx context.Context, key string) ([]models.Order, error) {
	return s.repo.ListOrdersByCheckoutKey(ctx, key)
}

func (s *OrderService) placeSellerOrder(ctx context.Context, req *CheckoutRequest, pct int, sq SellerQuote) (*models.Order, error) {
	key := req.IdempotencyKey + ":" + strconv.FormatInt(sq.SellerID, 10)

	existing, err := s.repo.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout detected",
			zap.String("idempotency_key", key),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}

	lines := make([]StockLine, 0, len(sq.Items))
	items := make([]models.OrderItem, 0, len(sq.Items))
	for _, it := range sq.Items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		items = append(items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Dimensions:  it.DimensionLabel(),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	if err := s.stock.Reserve(ctx, lines); err != nil {
		util.OrdersFailedTotal.WithLabelValues("stock").Inc()
		return nil, err
	}

	order := &models.Order{
		OrderNumber:      "ORD-" + strings.ToUpper(uuid.New().String()[:8]),
		BuyerID:          req.BuyerID,
		SellerID:         sq.SellerID,
		SellerName:       sq.SellerName,
		Status:           models.OrderStatusPendingPayment,
		Subtotal:         sq.Subtotal,
		TaxAmount:        sq.Tax,
		Total:            sq.Total,
		DepositPercent:   pct,
		DepositAmount:    sq.Deposit,
		RemainingBalance: sq.Remaining,
		IdempotencyKey:   key,
	}

	if err := s.repo.CreateOrderWithItems(ctx, order, items); err != nil {
		s.stock.Release(ctx, lines)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("seller_id", order.SellerID),
		zap.String("deposit", order.DepositAmount.StringFixed(2)))

	event := &models.OrderPlacedEvent{
		BaseEvent:     models.NewBaseEvent(uuid.New().String(), models.EventTypeOrderPlaced),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		BuyerID:       order.BuyerID,
		SellerID:      order.SellerID,
		Total:         order.Total,
		DepositAmount: order.DepositAmount,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

// OrderFilter narrows an order list
type OrderFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// ListBuyerOrders returns a page of a buyer's orders
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID int64, f OrderFilter) (Page[models.Order], error) {
	orders, err := s.repo.ListOrdersByBuyer(ctx, buyerID)
	if err != nil {
		return Page[models.Order]{}, err
	}
	return Paginate(filterOrders(orders, f), f.Page, f.PageSize), nil
}

// ListSellerOrders returns a page of a seller's orders
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID int64, f OrderFilter) (Page[models.Order], error) {
	orders, err := s.repo.ListOrdersBySeller(ctx, sellerID)
	if err != nil {
		return Page[models.Order]{}, err
	}
	return Paginate(filterOrders(orders, f), f.Page, f.PageSize), nil
}

func filterOrders(orders []models.Order, f OrderFilter) []models.Order {
	search := strings.TrimSpace(f.Search)
	return Filter(orders, func(o models.Order) bool {
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if search != "" &&
			!containsFold(o.OrderNumber, search) &&
			!containsFold(o.SellerName, search) &&
			!containsFold(o.BuyerName, search) {
			return false
		}
		return true
	})
}

// OrderDetail is an order with its items
type OrderDetail struct {
	Order models.Order
	Items []models.OrderItem
}

// GetOrder returns an order visible to user; other users' orders are ErrNotFound
func (s *OrderService) GetOrder(ctx context.Context, user *models.User, orderID int64) (*OrderDetail, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canSee(user, order) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	items, err := s.repo.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

func canSee(user *models.User, order *models.Order) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RoleBuyer:
		return order.BuyerID == user.ID
	case models.RoleSeller:
		return order.SellerID == user.ID
	}
	return false
}

// sellerTransitions lists the status changes a seller may make by hand
var sellerTransitions = map[string][]string{
	models.OrderStatusPendingPayment: {models.OrderStatusCancelled},
	models.OrderStatusConfirmed:      {models.OrderStatusShipped},
	models.OrderStatusShipped:        {models.OrderStatusDelivered},
}

// NextStatuses returns the statuses a seller may move an order to from status
func NextStatuses(status string) []string {
	return sellerTransitions[status]
}

// UpdateStatus moves a seller's order along its lifecycle
func (s *OrderService) UpdateStatus(ctx context.Context, sellerID, orderID int64, status string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.SellerID != sellerID {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	allowed := false
	for _, next := range sellerTransitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	// the payment saga may have moved the order since it was read
	if err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, status); err != nil {
		if errors.Is(err, store.ErrStatusChanged) {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if status == models.OrderStatusCancelled {
		items, err := s.repo.GetOrderItemsByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to get order items: %w", err)
		}
		s.stock.Release(ctx, stockLines(items))
		util.OrdersCancelledTotal.Inc()
	}

	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", status))
	return nil
}

func stockLines(items []models.OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}
