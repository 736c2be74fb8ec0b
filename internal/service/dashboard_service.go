package service

import (
	"context"

	"marketplace/internal/models"
	"marketplace/internal/store"
	"marketplace/internal/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// StatsRepository is the slice of the store dashboards aggregate over
type StatsRepository interface {
	CountProducts(ctx context.Context, sc store.Scope) (int, error)
	CountOrders(ctx context.Context, sc store.Scope) (total int, pending int, err error)
	SumPaid(ctx context.Context, sc store.Scope) (decimal.Decimal, error)
	SumOutstanding(ctx context.Context, sc store.Scope) (decimal.Decimal, error)
	CountUsers(ctx context.Context) (int, error)
}

// DashboardService computes the counters shown on dashboards
type DashboardService struct {
	repo StatsRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repo StatsRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Stats runs every aggregate for user's scope concurrently. Admins see the
// whole marketplace.
func (s *DashboardService) Stats(ctx context.Context, user *models.User) (*models.DashboardStats, error) {
	ctx, span := util.StartSpan(ctx, "DashboardService.Stats")
	defer span.End()

	var sc store.Scope
	switch user.Role {
	case models.RoleBuyer:
		sc.BuyerID = user.ID
	case models.RoleSeller:
		sc.SellerID = user.ID
	}

	stats := &models.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	if user.Role != models.RoleBuyer {
		g.Go(func() error {
			n, err := s.repo.CountProducts(ctx, sc)
			stats.Products = n
			return err
		})
	}
	g.Go(func() error {
		total, pending, err := s.repo.CountOrders(ctx, sc)
		stats.Orders, stats.PendingOrders = total, pending
		return err
	})
	g.Go(func() error {
		sum, err := s.repo.SumPaid(ctx, sc)
		stats.Revenue = sum
		return err
	})
	g.Go(func() error {
		sum, err := s.repo.SumOutstanding(ctx, sc)
		stats.OutstandingBalance = sum
		return err
	})
	if user.Role == models.RoleAdmin {
		g.Go(func() error {
			n, err := s.repo.CountUsers(ctx)
			stats.Users = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
