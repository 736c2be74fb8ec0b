package store

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace/internal/models"
)

// GetUserByID retrieves a profile
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every profile, or only those with role when it is set
func (s *Store) ListUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	users := []models.User{}
	var err error
	if role == "" {
		err = s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id")
	} else {
		err = s.db.SelectContext(ctx, &users, "SELECT * FROM users WHERE role = $1 ORDER BY company_name", role)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateProfile rewrites a user's contact fields
func (s *Store) UpdateProfile(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET display_name = $1, company_name = $2, phone = $3, city = $4
		WHERE id = $5`,
		u.DisplayName, u.CompanyName, u.Phone, u.City, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectOne(res, "user", u.ID)
}
