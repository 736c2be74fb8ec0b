package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"marketplace/internal/models"
	"marketplace/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentRepository is the slice of the store payments need
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status, providerTxID string) error
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
}

// PaymentPublisher publishes payment outcomes
type PaymentPublisher interface {
	PublishPaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// PaymentService charges order deposits against a mocked gateway
type PaymentService struct {
	repo           PaymentRepository
	eventPublisher PaymentPublisher
	logger         *zap.Logger
	successRate    float64 // Mock success rate (0.0 - 1.0)
	roll           func() float64
	latency        func() time.Duration
}

// NewPaymentService creates a new payment service
func NewPaymentService(repo PaymentRepository, eventPublisher PaymentPublisher, successRate float64) *PaymentService {
	return &PaymentService{
		repo:           repo,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		successRate:    successRate,
		roll:           rand.Float64,
		latency: func() time.Duration {
			return time.Duration(100+rand.Intn(400)) * time.Millisecond
		},
	}
}

// ProcessDeposit charges the deposit of an order (mocked) and publishes the outcome
func (ps *PaymentService) ProcessDeposit(ctx context.Context, orderID int64, amount decimal.Decimal) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.ProcessDeposit")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	ps.logger.Info("Processing deposit",
		zap.Int64("order_id", orderID),
		zap.String("amount", amount.StringFixed(2)))

	payment := &models.Payment{
		OrderID: orderID,
		Status:  models.PaymentStatusPending,
		Amount:  amount,
	}

	if err := ps.repo.CreatePayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	select {
	case <-time.After(ps.latency()):
	case <-ctx.Done():
		return ctx.Err()
	}

	success := ps.roll() < ps.successRate
	providerTxID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])

	if success {
		ps.logger.Info("Deposit succeeded",
			zap.Int64("order_id", orderID),
			zap.String("tx_id", providerTxID))

		if err := ps.repo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusSuccess, providerTxID); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		util.PaymentSuccessTotal.Inc()

		event := &models.PaymentSucceededEvent{
			BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypePaymentSucceeded),
			OrderID:   orderID,
			PaymentID: payment.ID,
			Amount:    amount,
			TxID:      providerTxID,
		}

		if err := ps.eventPublisher.PublishPaymentSucceeded(ctx, event); err != nil {
			ps.logger.Error("Failed to publish PaymentSucceeded event", zap.Error(err))
		}
		return nil
	}

	ps.logger.Warn("Deposit declined", zap.Int64("order_id", orderID))

	if err := ps.repo.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, ""); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	util.PaymentFailedTotal.Inc()

	event := &models.PaymentFailedEvent{
		BaseEvent: models.NewBaseEvent(uuid.New().String(), models.EventTypePaymentFailed),
		OrderID:   orderID,
		PaymentID: payment.ID,
		Reason:    "mock_payment_declined",
	}

	if err := ps.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
	return nil
}

// HandleOrderPlaced is the OrderPlaced consumer callback
func (ps *PaymentService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ps.ProcessDeposit(ctx, event.OrderID, event.DepositAmount)
}

// GetPayment retrieves payment for an order
func (ps *PaymentService) GetPayment(ctx context.Context, orderID int64) (*models.Payment, error) {
	return ps.repo.GetPaymentByOrderID(ctx, orderID)
}
