package store

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace/internal/models"
)

const invoiceSelect = `
	SELECT i.id, i.invoice_number, i.order_id, o.order_number, i.buyer_id, i.seller_id,
	       i.kind, i.amount, i.status, i.issued_at, i.paid_at
	FROM invoices i
	JOIN orders o ON o.id = i.order_id`

// CreateInvoice inserts an invoice. A second invoice of the same kind for an
// order is ignored, which keeps replayed events harmless.
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO invoices (invoice_number, order_id, buyer_id, seller_id, kind, amount, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (order_id, kind) DO NOTHING
		RETURNING id, issued_at`,
		inv.InvoiceNumber, inv.OrderID, inv.BuyerID, inv.SellerID, inv.Kind, inv.Amount, inv.Status, inv.PaidAt,
	).Scan(&inv.ID, &inv.IssuedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

// GetInvoiceByID retrieves an invoice
func (s *Store) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv, invoiceSelect+" WHERE i.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvoicesByBuyer returns a buyer's invoices, newest first
func (s *Store) ListInvoicesByBuyer(ctx context.Context, buyerID int64) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := s.db.SelectContext(ctx, &invoices, invoiceSelect+" WHERE i.buyer_id = $1 ORDER BY i.issued_at DESC", buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buyer invoices: %w", err)
	}
	return invoices, nil
}

// ListInvoicesBySeller returns a seller's invoices, newest first
func (s *Store) ListInvoicesBySeller(ctx context.Context, sellerID int64) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	err := s.db.SelectContext(ctx, &invoices, invoiceSelect+" WHERE i.seller_id = $1 ORDER BY i.issued_at DESC", sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller invoices: %w", err)
	}
	return invoices, nil
}

// MarkInvoicePaid settles a due invoice. Already-paid invoices report ErrNotFound.
func (s *Store) MarkInvoicePaid(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invoices SET status = $1, paid_at = NOW() WHERE id = $2 AND status = $3",
		models.InvoiceStatusPaid, id, models.InvoiceStatusDue)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	return expectOne(res, "due invoice", id)
}
