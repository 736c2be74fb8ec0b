package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SagaRepository is the slice of the store the saga needs
type SagaRepository interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// CancellationPublisher announces orders the saga cancelled
type CancellationPublisher interface {
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// SagaOrchestrator completes or compensates an order once its deposit
// payment outcome is known
type SagaOrchestrator struct {
	repo      SagaRepository
	stock     *StockService
	publisher CancellationPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSagaOrchestrator creates a new saga orchestrator
func NewSagaOrchestrator(repo SagaRepository, stock *StockService, publisher CancellationPublisher) *SagaOrchestrator {
	return &SagaOrchestrator{
		repo:      repo,
		stock:     stock,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// HandlePaymentSucceeded confirms the order and issues its invoices
func (so *SagaOrchestrator) HandlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentSucceeded")
	defer span.End()

	processed, err := so.repo.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := so.repo.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order.Status != models.OrderStatusPendingPayment {
		so.logger.Warn("Deposit settled for an order no longer pending",
			zap.Int64("order_id", order.ID),
			zap.String("status", order.Status))
		return so.markProcessed(ctx, event.BaseEvent)
	}

	so.logger.Info("Handling deposit success",
		zap.Int64("order_id", event.OrderID),
		zap.String("tx_id", event.TxID))

	err = so.repo.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPendingPayment, models.OrderStatusConfirmed)
	if errors.Is(err, store.ErrStatusChanged) {
		so.logger.Warn("Order left pending payment before confirmation", zap.Int64("order_id", order.ID))
		return so.markProcessed(ctx, event.BaseEvent)
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	util.OrdersConfirmedTotal.Inc()

	paidAt := so.now()
	deposit := &models.Invoice{
		InvoiceNumber: invoiceNumber(),
		OrderID:       order.ID,
		BuyerID:       order.BuyerID,
		SellerID:      order.SellerID,
		Kind:          models.InvoiceKindDeposit,
		Amount:        order.DepositAmount,
		Status:        models.InvoiceStatusPaid,
		PaidAt:        &paidAt,
	}
	if err := so.repo.CreateInvoice(ctx, deposit); err != nil {
		return fmt.Errorf("failed to issue deposit invoice: %w", err)
	}
	util.InvoicesIssuedTotal.WithLabelValues(models.InvoiceKindDeposit).Inc()

	if order.RemainingBalance.IsPositive() {
		balance := &models.Invoice{
			InvoiceNumber: invoiceNumber(),
			OrderID:       order.ID,
			BuyerID:       order.BuyerID,
			SellerID:      order.SellerID,
			Kind:          models.InvoiceKindBalance,
			Amount:        order.RemainingBalance,
			Status:        models.InvoiceStatusDue,
		}
		if err := so.repo.CreateInvoice(ctx, balance); err != nil {
			return fmt.Errorf("failed to issue balance invoice: %w", err)
		}
		util.InvoicesIssuedTotal.WithLabelValues(models.InvoiceKindBalance).Inc()
	}

	so.notify(ctx, order.BuyerID, "notify.order_confirmed",
		fmt.Sprintf("%s|%s", order.OrderNumber, order.DepositAmount.StringFixed(2)))
	so.notify(ctx, order.SellerID, "notify.order_received",
		fmt.Sprintf("%s|%s", order.OrderNumber, order.Total.StringFixed(2)))

	so.logger.Info("Order confirmed", zap.Int64("order_id", order.ID))
	return so.markProcessed(ctx, event.BaseEvent)
}

// HandlePaymentFailed cancels the order and gives its stock back (compensation)
func (so *SagaOrchestrator) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SagaOrchestrator.HandlePaymentFailed")
	defer span.End()

	processed, err := so.repo.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		so.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := so.repo.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order.Status != models.OrderStatusPendingPayment {
		return so.markProcessed(ctx, event.BaseEvent)
	}

	so.logger.Warn("Handling deposit failure - starting compensation",
		zap.Int64("order_id", event.OrderID),
		zap.String("reason", event.Reason))

	err = so.repo.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPendingPayment, models.OrderStatusCancelled)
	if errors.Is(err, store.ErrStatusChanged) {
		so.logger.Warn("Order left pending payment before compensation", zap.Int64("order_id", order.ID))
		return so.markProcessed(ctx, event.BaseEvent)
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	util.OrdersCancelledTotal.Inc()

	items, err := so.repo.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	so.stock.Release(ctx, stockLines(items))

	so.notify(ctx, order.BuyerID, "notify.order_cancelled", order.OrderNumber)

	cancelled := &models.OrderCancelledEvent{
		BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypeOrderCancelled),
		OrderID:   order.ID,
		Reason:    event.Reason,
	}
	if err := so.publisher.PublishOrderCancelled(ctx, cancelled); err != nil {
		so.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	so.logger.Info("Order cancelled and compensated", zap.Int64("order_id", order.ID))
	return so.markProcessed(ctx, event.BaseEvent)
}

func (so *SagaOrchestrator) markProcessed(ctx context.Context, event models.BaseEvent) error {
	if err := so.repo.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		so.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// notify stores a notification whose title is a translation key and whose
// body carries "|"-separated arguments for it
func (so *SagaOrchestrator) notify(ctx context.Context, userID int64, key, args string) {
	n := &models.Notification{UserID: userID, Title: key, Body: args}
	if err := so.repo.CreateNotification(ctx, n); err != nil {
		so.logger.Error("Failed to store notification",
			zap.Int64("user_id", userID),
			zap.String("key", key),
			zap.Error(err))
	}
}

func invoiceNumber() string {
	return "INV-" + strings.ToUpper(uuid.New().String()[:8])
}
