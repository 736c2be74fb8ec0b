package store

import (
	"context"
	"fmt"

	"marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// Scope limits a dashboard aggregate to one buyer or one seller.
// The zero Scope covers the whole marketplace.
type Scope struct {
	BuyerID  int64
	SellerID int64
}

func (sc Scope) orderFilter() (string, []interface{}) {
	switch {
	case sc.BuyerID != 0:
		return " WHERE buyer_id = $1", []interface{}{sc.BuyerID}
	case sc.SellerID != 0:
		return " WHERE seller_id = $1", []interface{}{sc.SellerID}
	}
	return "", nil
}

// CountProducts counts listed products in scope
func (s *Store) CountProducts(ctx context.Context, sc Scope) (int, error) {
	query, args := "SELECT COUNT(*) FROM products", []interface{}(nil)
	if sc.SellerID != 0 {
		query, args = query+" WHERE seller_id = $1", []interface{}{sc.SellerID}
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CountOrders returns the number of orders in scope and how many await payment
func (s *Store) CountOrders(ctx context.Context, sc Scope) (total int, pending int, err error) {
	where, args := sc.orderFilter()
	pendingArg := len(args) + 1
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = $%d) AS pending FROM orders%s",
		pendingArg, where)
	args = append(args, models.OrderStatusPendingPayment)

	var row struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return 0, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return row.Total, row.Pending, nil
}

// SumPaid adds up paid invoices in scope
func (s *Store) SumPaid(ctx context.Context, sc Scope) (decimal.Decimal, error) {
	return s.sumInvoices(ctx, sc, models.InvoiceStatusPaid)
}

// SumOutstanding adds up due invoices in scope
func (s *Store) SumOutstanding(ctx context.Context, sc Scope) (decimal.Decimal, error) {
	return s.sumInvoices(ctx, sc, models.InvoiceStatusDue)
}

func (s *Store) sumInvoices(ctx context.Context, sc Scope, status string) (decimal.Decimal, error) {
	where, args := sc.orderFilter()
	args = append(args, status)
	cond := fmt.Sprintf("status = $%d", len(args))
	if where == "" {
		where = " WHERE " + cond
	} else {
		where += " AND " + cond
	}

	var sum decimal.Decimal
	if err := s.db.GetContext(ctx, &sum, "SELECT COALESCE(SUM(amount), 0) FROM invoices"+where, args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum invoices: %w", err)
	}
	return sum, nil
}

// CountUsers counts all profiles
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
