package worker

import (
	"context"

	"marketplace/internal/broker"
	"marketplace/internal/models"
	"marketplace/internal/util"

	"go.uber.org/zap"
)

// Source delivers order-event messages; *broker.Consumer in production
type Source interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// PaymentSagaHandler completes or compensates an order once its deposit settles
type PaymentSagaHandler interface {
	HandlePaymentSucceeded(ctx context.Context, event *models.PaymentSucceededEvent) error
	HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// DepositProcessor charges the deposit of a placed order
type DepositProcessor interface {
	HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// OrderWorker drives the checkout saga from payment outcomes
type OrderWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(source Source, saga PaymentSagaHandler) *OrderWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPaymentSucceeded(saga.HandlePaymentSucceeded)
	eventHandler.OnPaymentFailed(saga.HandlePaymentFailed)

	return &OrderWorker{
		source:       source,
		eventHandler: eventHandler,
		logger:       util.Named("order-worker"),
	}
}

// Start consumes until ctx is done
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.source.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.source.Close()
}

// PaymentWorker charges deposits for placed orders
type PaymentWorker struct {
	source       Source
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewPaymentWorker creates a new payment worker
func NewPaymentWorker(source Source, payments DepositProcessor) *PaymentWorker {
	pw := &PaymentWorker{
		source:       source,
		eventHandler: broker.NewEventHandler(),
		logger:       util.Named("payment-worker"),
	}

	pw.eventHandler.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		pw.logger.Info("Processing deposit",
			zap.Int64("order_id", event.OrderID),
			zap.String("order_number", event.OrderNumber),
			zap.String("amount", event.DepositAmount.StringFixed(2)))
		return payments.HandleOrderPlaced(ctx, event)
	})
	return pw
}

// Start consumes until ctx is done
func (pw *PaymentWorker) Start(ctx context.Context) error {
	pw.logger.Info("Starting payment worker")
	return pw.source.StartConsuming(ctx, pw.eventHandler.HandleMessage)
}

// Stop stops the payment worker
func (pw *PaymentWorker) Stop() error {
	pw.logger.Info("Stopping payment worker")
	return pw.source.Close()
}
