package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/models"
	"marketplace/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidBranch  = errors.New("invalid branch")
)

// ProfileRepository is the slice of the store profiles and branches need
type ProfileRepository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	ListBranches(ctx context.Context, sellerID int64) ([]models.Branch, error)
	CreateBranch(ctx context.Context, b *models.Branch) error
	DeleteBranch(ctx context.Context, sellerID, id int64) error
}

// ProfileService serves the demo identity picker, profile pages, the seller
// directory and seller branches
type ProfileService struct {
	repo   ProfileRepository
	logger *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// Profiles lists every identity a visitor can switch to
func (s *ProfileService) Profiles(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx, "")
}

// GetProfile returns one profile
func (s *ProfileService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile saves the contact fields of u
func (s *ProfileService) UpdateProfile(ctx context.Context, u *models.User) error {
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	u.CompanyName = strings.TrimSpace(u.CompanyName)
	u.Phone = strings.TrimSpace(u.Phone)
	u.City = strings.TrimSpace(u.City)
	if u.DisplayName == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidProfile)
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return err
	}
	s.logger.Info("Profile updated", zap.Int64("user_id", u.ID))
	return nil
}

// SellerFilter narrows the seller directory
type SellerFilter struct {
	Search   string
	City     string
	Page     int
	PageSize int
}

// ListSellers returns a page of the seller directory
func (s *ProfileService) ListSellers(ctx context.Context, f SellerFilter) (Page[models.User], error) {
	sellers, err := s.repo.ListUsers(ctx, models.RoleSeller)
	if err != nil {
		return Page[models.User]{}, err
	}

	search := strings.TrimSpace(f.Search)
	sellers = Filter(sellers, func(u models.User) bool {
		if f.City != "" && !strings.EqualFold(u.City, f.City) {
			return false
		}
		return search == "" || containsFold(u.CompanyName, search) || containsFold(u.DisplayName, search)
	})
	return Paginate(sellers, f.Page, f.PageSize), nil
}

// ListBranches returns a seller's branches
func (s *ProfileService) ListBranches(ctx context.Context, sellerID int64) ([]models.Branch, error) {
	return s.repo.ListBranches(ctx, sellerID)
}

// AddBranch stores a new seller branch
func (s *ProfileService) AddBranch(ctx context.Context, b *models.Branch) error {
	b.Name = strings.TrimSpace(b.Name)
	b.City = strings.TrimSpace(b.City)
	b.Address = strings.TrimSpace(b.Address)
	b.Phone = strings.TrimSpace(b.Phone)
	if b.Name == "" || b.City == "" {
		return fmt.Errorf("%w: name and city are required", ErrInvalidBranch)
	}
	if err := s.repo.CreateBranch(ctx, b); err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	s.logger.Info("Branch added", zap.Int64("branch_id", b.ID), zap.Int64("seller_id", b.SellerID))
	return nil
}

// RemoveBranch deletes a seller's branch
func (s *ProfileService) RemoveBranch(ctx context.Context, sellerID, id int64) error {
	return s.repo.DeleteBranch(ctx, sellerID, id)
}
