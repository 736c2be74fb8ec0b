package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"marketplace/internal/models"
	"marketplace/internal/util"

	"go.uber.org/zap"
)

// ErrInvalidMessage is returned for empty or oversized support messages
var ErrInvalidMessage = errors.New("message must be between 1 and 2000 characters")

const maxMessageLength = 2000

// FAQ is the markdown shown above every support thread
const FAQ = `### Frequently asked questions

**How does the deposit work?**
At checkout you choose how much of each order to pay up front (30%, 50% or 100%).
The rest is invoiced as a *balance* invoice once the seller confirms your order.

**Why did my cart become several orders?**
Every seller ships and invoices separately, so checkout places one order per seller.

**Can I change an order after checkout?**
Ask the seller through this thread. Orders awaiting payment can be cancelled by the seller.

**Where are my invoices?**
Open *Invoices* in the menu. Paid deposit invoices and due balance invoices are listed there.
`

// SupportRepository is the slice of the store support and notifications need
type SupportRepository interface {
	ListMessages(ctx context.Context, threadID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID int64) error
}

// SupportService runs the per-user support thread and the notification inbox
type SupportService struct {
	repo   SupportRepository
	logger *zap.Logger
}

// NewSupportService creates a new support service
func NewSupportService(repo SupportRepository) *SupportService {
	return &SupportService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// ThreadID names the support thread of a user
func ThreadID(userID int64) string {
	return fmt.Sprintf("support-%d", userID)
}

// Thread returns a user's support conversation
func (s *SupportService) Thread(ctx context.Context, userID int64) ([]models.Message, error) {
	return s.repo.ListMessages(ctx, ThreadID(userID))
}

// Post appends a message from userID to their own thread
func (s *SupportService) Post(ctx context.Context, userID int64, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLength {
		return nil, ErrInvalidMessage
	}

	m := &models.Message{ThreadID: ThreadID(userID), SenderID: userID, Body: body}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to post message: %w", err)
	}
	s.logger.Info("Support message posted", zap.String("thread", m.ThreadID), zap.Int64("message_id", m.ID))
	return m, nil
}

// Notifications returns a user's notifications and how many are unread
func (s *SupportService) Notifications(ctx context.Context, userID int64) ([]models.Notification, int, error) {
	list, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return list, unread, nil
}

// MarkAllRead flags every notification of userID as read
func (s *SupportService) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkNotificationsRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
