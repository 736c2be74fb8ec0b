package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"marketplace/internal/models"

	"github.com/lib/pq"
)

const productColumns = `
	p.id, p.seller_id, u.company_name AS seller_name, p.name, p.description,
	p.main_category, p.subcategory, p.price, p.min_order_qty, p.unit, p.stock,
	p.sizes, p.created_at, p.updated_at`

// ProductQuery narrows ListProducts. Zero values mean "any".
type ProductQuery struct {
	SellerID   int64
	Categories []string
	Search     string
}

// ListProducts returns products matching q, newest first
func (s *Store) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.SellerID != 0 {
		args = append(args, q.SellerID)
		where = append(where, fmt.Sprintf("p.seller_id = $%d", len(args)))
	}
	if len(q.Categories) > 0 {
		args = append(args, pq.Array(q.Categories))
		n := len(args)
		where = append(where, fmt.Sprintf("(p.main_category = ANY($%d) OR p.subcategory = ANY($%d))", n, n))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		args = append(args, "%"+term+"%")
		where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}

	query := "SELECT" + productColumns + " FROM products p JOIN users u ON u.id = p.seller_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT"+productColumns+" FROM products p JOIN users u ON u.id = p.seller_id WHERE p.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts p and fills its ID and timestamps
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (seller_id, name, description, main_category, subcategory, price, min_order_qty, unit, stock, sizes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.SellerID, p.Name, p.Description, p.MainCategory, p.Subcategory,
		p.Price, p.MinOrderQty, p.Unit, p.Stock, p.Sizes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// UpdateProduct rewrites the editable fields of a seller's product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, main_category = $3, subcategory = $4, price = $5,
		    min_order_qty = $6, unit = $7, stock = $8, sizes = $9, updated_at = NOW()
		WHERE id = $10 AND seller_id = $11`,
		p.Name, p.Description, p.MainCategory, p.Subcategory, p.Price,
		p.MinOrderQty, p.Unit, p.Stock, p.Sizes, p.ID, p.SellerID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectOne(res, "product", p.ID)
}

// DeleteProduct removes a seller's product
func (s *Store) DeleteProduct(ctx context.Context, sellerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM products WHERE id = $1 AND seller_id = $2", id, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectOne(res, "product", id)
}

func expectOne(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return nil
}

// ReserveStockTx decrements a product's stock inside a transaction (FOR UPDATE lock)
func (s *Store) ReserveStockTx(ctx context.Context, productID int64, quantity int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var available int
	err = tx.GetContext(ctx, &available,
		"SELECT stock FROM products WHERE id = $1 FOR UPDATE", productID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product stock: %w", err)
	}

	if available < quantity {
		return fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientStock, available, quantity)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	return tx.Commit()
}

// ReleaseStock gives reserved stock back (compensation)
func (s *Store) ReleaseStock(ctx context.Context, productID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	return err
}
