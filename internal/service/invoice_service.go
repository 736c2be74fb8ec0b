package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/util"

	"go.uber.org/zap"
)

// ErrNotBalanceInvoice is returned when a deposit invoice is settled by hand
var ErrNotBalanceInvoice = errors.New("only balance invoices can be recorded as paid")

// InvoiceRepository is the slice of the store invoices need
type InvoiceRepository interface {
	GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
	ListInvoicesByBuyer(ctx context.Context, buyerID int64) ([]models.Invoice, error)
	ListInvoicesBySeller(ctx context.Context, sellerID int64) ([]models.Invoice, error)
	MarkInvoicePaid(ctx context.Context, id int64) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to string) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// InvoiceService lists invoices and settles remaining balances
type InvoiceService struct {
	repo   InvoiceRepository
	logger *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(repo InvoiceRepository) *InvoiceService {
	return &InvoiceService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// InvoiceFilter narrows an invoice list
type InvoiceFilter struct {
	Status   string
	Kind     string
	Search   string
	Page     int
	PageSize int
}

// ListBuyerInvoices returns a page of a buyer's invoices
func (s *InvoiceService) ListBuyerInvoices(ctx context.Context, buyerID int64, f InvoiceFilter) (Page[models.Invoice], error) {
	invoices, err := s.repo.ListInvoicesByBuyer(ctx, buyerID)
	if err != nil {
		return Page[models.Invoice]{}, err
	}
	return Paginate(filterInvoices(invoices, f), f.Page, f.PageSize), nil
}

// ListSellerInvoices returns a page of a seller's invoices
func (s *InvoiceService) ListSellerInvoices(ctx context.Context, sellerID int64, f InvoiceFilter) (Page[models.Invoice], error) {
	invoices, err := s.repo.ListInvoicesBySeller(ctx, sellerID)
	if err != nil {
		return Page[models.Invoice]{}, err
	}
	return Paginate(filterInvoices(invoices, f), f.Page, f.PageSize), nil
}

func filterInvoices(invoices []models.Invoice, f InvoiceFilter) []models.Invoice {
	search := strings.TrimSpace(f.Search)
	return Filter(invoices, func(inv models.Invoice) bool {
		if f.Status != "" && inv.Status != f.Status {
			return false
		}
		if f.Kind != "" && inv.Kind != f.Kind {
			return false
		}
		if search != "" && !containsFold(inv.InvoiceNumber, search) && !containsFold(inv.OrderNumber, search) {
			return false
		}
		return true
	})
}

// RecordBalancePayment marks a seller's due balance invoice paid and the order
// paid in full
func (s *InvoiceService) RecordBalancePayment(ctx context.Context, sellerID, invoiceID int64) error {
	ctx, span := util.StartSpan(ctx, "InvoiceService.RecordBalancePayment")
	defer span.End()

	inv, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.SellerID != sellerID {
		return fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}
	if inv.Kind != models.InvoiceKindBalance {
		return ErrNotBalanceInvoice
	}

	if err := s.repo.MarkInvoicePaid(ctx, invoiceID); err != nil {
		return err
	}

	order, err := s.repo.GetOrderByID(ctx, inv.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order.Status != models.OrderStatusCancelled && order.Status != models.OrderStatusPaidInFull {
		err := s.repo.UpdateOrderStatus(ctx, order.ID, order.Status, models.OrderStatusPaidInFull)
		if errors.Is(err, store.ErrStatusChanged) {
			s.logger.Warn("Order changed while recording balance", zap.Int64("order_id", order.ID), zap.Error(err))
		} else if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
	}

	n := &models.Notification{
		UserID: inv.BuyerID,
		Title:  "notify.balance_received",
		Body:   fmt.Sprintf("%s|%s", inv.InvoiceNumber, inv.Amount.StringFixed(2)),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", zap.Int64("user_id", inv.BuyerID), zap.Error(err))
	}

	s.logger.Info("Balance recorded",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("order_id", order.ID))
	return nil
}
