package store

import (
	"context"
	"fmt"

	"marketplace/internal/models"
)

// CreateNotification stores a notification for a user
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (user_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		n.UserID, n.Title, n.Body,
	).Scan(&n.ID, &n.CreatedAt)
}

// ListNotifications returns a user's notifications, newest first
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationsRead flags every notification of a user as read
func (s *Store) MarkNotificationsRead(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE", userID)
	return err
}

// ListMessages returns a support thread in chronological order
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	out := []models.Message{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT m.id, m.thread_id, m.sender_id, u.display_name AS sender_name, m.body, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.thread_id = $1
		ORDER BY m.created_at, m.id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return out, nil
}

// CreateMessage appends to a support thread
func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.db.QueryRowxContext(ctx, `
		INSERT INTO messages (thread_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		m.ThreadID, m.SenderID, m.Body,
	).Scan(&m.ID, &m.CreatedAt)
}

// ListBranches returns a seller's branches
func (s *Store) ListBranches(ctx context.Context, sellerID int64) ([]models.Branch, error) {
	out := []models.Branch{}
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM branches WHERE seller_id = $1 ORDER BY name", sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return out, nil
}

// CreateBranch adds a seller branch
func (s *Store) CreateBranch(ctx context.Context, b *models.Branch) error {
	return s.db.QueryRowxContext(ctx, `
		INSERT INTO branches (seller_id, name, city, address, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		b.SellerID, b.Name, b.City, b.Address, b.Phone,
	).Scan(&b.ID, &b.CreatedAt)
}

// DeleteBranch removes a seller's branch
func (s *Store) DeleteBranch(ctx context.Context, sellerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM branches WHERE id = $1 AND seller_id = $2", id, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return expectOne(res, "branch", id)
}
