package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/store"
	"marketplace/internal/util"

	"go.uber.org/zap"
)

// ErrOutOfStock is returned when a seller cannot cover an order line
var ErrOutOfStock = errors.New("not enough stock")

// StockRepository is the slice of the store the stock service needs
type StockRepository interface {
	ReserveStockTx(ctx context.Context, productID int64, quantity int) error
	ReleaseStock(ctx context.Context, productID int64, quantity int) error
}

// StockLine is one product quantity to reserve or release
type StockLine struct {
	ProductID int64
	Quantity  int
}

// StockService reserves product stock at checkout and gives it back when an
// order is cancelled
type StockService struct {
	repo   StockRepository
	logger *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(repo StockRepository) *StockService {
	return &StockService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// Reserve takes every line or none: on the first failure the lines already
// reserved are released again.
func (s *StockService) Reserve(ctx context.Context, lines []StockLine) error {
	ctx, span := util.StartSpan(ctx, "StockService.Reserve")
	defer span.End()

	for i, line := range lines {
		err := s.repo.ReserveStockTx(ctx, line.ProductID, line.Quantity)
		if err == nil {
			continue
		}

		s.Release(ctx, lines[:i])
		if errors.Is(err, store.ErrInsufficientStock) {
			return fmt.Errorf("%w for product %d", ErrOutOfStock, line.ProductID)
		}
		return fmt.Errorf("failed to reserve stock for product %d: %w", line.ProductID, err)
	}
	return nil
}

// Release gives stock back (compensation). Failures are logged, not returned.
func (s *StockService) Release(ctx context.Context, lines []StockLine) {
	for _, line := range lines {
		if err := s.repo.ReleaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.logger.Error("Failed to release stock",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}
