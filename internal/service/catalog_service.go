package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/cart"
	"marketplace/internal/catalog"
	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidSize    = errors.New("size is not offered for this product")
)

// ProductRepository is the slice of the store the catalog needs
type ProductRepository interface {
	ListProducts(ctx context.Context, q store.ProductQuery) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, sellerID, id int64) error
}

// CatalogService browses products and manages seller listings
type CatalogService struct {
	repo       ProductRepository
	categories *catalog.Hierarchy
	logger     *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo ProductRepository, categories *catalog.Hierarchy) *CatalogService {
	return &CatalogService{
		repo:       repo,
		categories: categories,
		logger:     util.GetLogger(),
	}
}

// Categories exposes the taxonomy the service validates against
func (s *CatalogService) Categories() *catalog.Hierarchy {
	return s.categories
}

// ProductFilter narrows a product list. Category may be a main category
// (matching all of its subcategories) or a single subcategory.
type ProductFilter struct {
	SellerID int64
	Category string
	Search   string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	Page     int
	PageSize int
}

// ListProducts returns a page of products matching f
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) (Page[models.Product], error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	q := store.ProductQuery{SellerID: f.SellerID, Search: f.Search}
	if f.Category != "" {
		q.Categories = s.categories.Expand(f.Category)
	}

	products, err := s.repo.ListProducts(ctx, q)
	if err != nil {
		return Page[models.Product]{}, err
	}

	products = Filter(products, func(p models.Product) bool {
		if f.MinPrice.Valid && p.Price.LessThan(f.MinPrice.Decimal) {
			return false
		}
		if f.MaxPrice.Valid && p.Price.GreaterThan(f.MaxPrice.Decimal) {
			return false
		}
		return true
	})
	return Paginate(products, f.Page, f.PageSize), nil
}

// GetProduct returns one product
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProductByID(ctx, id)
}

// GetSellerProduct returns a product only if sellerID owns it
func (s *CatalogService) GetSellerProduct(ctx context.Context, sellerID, id int64) (*models.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	return p, nil
}

// SaveProduct validates p and creates it (zero ID) or updates it
func (s *CatalogService) SaveProduct(ctx context.Context, p *models.Product) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.SaveProduct")
	defer span.End()

	if err := s.normalize(p); err != nil {
		return err
	}

	if p.ID == 0 {
		if err := s.repo.CreateProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		s.logger.Info("Product created", zap.Int64("product_id", p.ID), zap.Int64("seller_id", p.SellerID))
		return nil
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.logger.Info("Product updated", zap.Int64("product_id", p.ID), zap.Int64("seller_id", p.SellerID))
	return nil
}

// DeleteProduct removes a seller's product
func (s *CatalogService) DeleteProduct(ctx context.Context, sellerID, id int64) error {
	if err := s.repo.DeleteProduct(ctx, sellerID, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id), zap.Int64("seller_id", sellerID))
	return nil
}

func (s *CatalogService) normalize(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Unit = strings.TrimSpace(p.Unit)
	if p.Unit == "" {
		p.Unit = "unit"
	}
	if p.MinOrderQty == 0 {
		p.MinOrderQty = 1
	}

	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !p.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	case p.MinOrderQty < 0:
		return fmt.Errorf("%w: minimum order quantity must be positive", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	case !s.categories.IsMainCategory(p.MainCategory):
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.MainCategory)
	}

	if p.Subcategory != "" {
		if main, ok := s.categories.MainCategoryFor(p.Subcategory); !ok || main != p.MainCategory {
			return fmt.Errorf("%w: %q is not a subcategory of %q", ErrInvalidProduct, p.Subcategory, p.MainCategory)
		}
	}

	sizes := p.Sizes[:0]
	for _, size := range p.Sizes {
		if size = strings.TrimSpace(size); size != "" {
			sizes = append(sizes, size)
		}
	}
	p.Sizes = sizes
	return nil
}

// AddToCart snapshots a product into the cart. A size must be one the product offers.
func (s *CatalogService) AddToCart(ctx context.Context, c *cart.Store, productID int64, qty int, size string) (*models.Product, error) {
	p, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	var dims map[string]string
	size = strings.TrimSpace(size)
	switch {
	case size != "":
		if !offersSize(p, size) {
			return nil, ErrInvalidSize
		}
		dims = map[string]string{"size": size}
	case len(p.Sizes) > 0:
		return nil, ErrInvalidSize
	}

	// zero adds one minimum order quantity
	if qty == 0 {
		qty = max(p.MinOrderQty, 1)
	}
	// stock covers every line of the product, whatever its size
	inCart := 0
	for _, line := range c.Items(ctx) {
		if line.ProductID == p.ID {
			inCart += line.Quantity
		}
	}
	if inCart+qty > p.Stock {
		return nil, fmt.Errorf("%w for product %d", ErrOutOfStock, p.ID)
	}

	item := cart.LineItem{
		ProductID:   p.ID,
		Name:        p.Name,
		SellerID:    p.SellerID,
		SellerName:  p.SellerName,
		UnitPrice:   p.Price,
		MinOrderQty: p.MinOrderQty,
		Unit:        p.Unit,
		Dimensions:  dims,
	}
	if err := c.Add(ctx, item, qty); err != nil {
		return nil, err
	}
	return p, nil
}

func offersSize(p *models.Product, size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
