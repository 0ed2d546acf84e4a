// Package notification records messages for students when an admin acts on
// their complaints and hands committed messages to the live hub.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"scms/backend/internal/auth"
	"scms/backend/internal/config"
	"scms/backend/internal/localization"
	"scms/backend/internal/models"
	"scms/backend/internal/storage"
)

// Publisher receives notifications after their transaction commits.
// hub.ManagerService satisfies it.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification)
}

type Service struct {
	Storage   storage.Storage
	Messages  *localization.Localizer
	Publisher Publisher
}

// NewService creates the service. publisher may be nil.
func NewService(s storage.Storage, messages *localization.Localizer, publisher Publisher) *Service {
	if messages == nil {
		messages = localization.Default()
	}
	return &Service{Storage: s, Messages: messages, Publisher: publisher}
}

// ListForUser returns the caller's newest notifications. The admin has none.
func (s *Service) ListForUser(ctx context.Context, caller auth.Identity) ([]models.Notification, error) {
	if caller.IsAdmin() {
		return []models.Notification{}, nil
	}
	list, err := s.Storage.ListNotifications(ctx, caller.ID, config.NotificationPage)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

func (s *Service) UnreadCount(ctx context.Context, caller auth.Identity) (int64, error) {
	if caller.IsAdmin() {
		return 0, nil
	}
	n, err := s.Storage.CountUnread(ctx, caller.ID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkAllRead flips every unread notification of the caller and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, caller auth.Identity) (int64, error) {
	if caller.IsAdmin() {
		return 0, nil
	}
	n, err := s.Storage.MarkAllRead(ctx, caller.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}

func (s *Service) StatusMessage(c *models.Complaint) string {
	return s.Messages.Format(localization.DefaultLang, localization.KeyStatusUpdated, c.TicketID, c.Status)
}

func (s *Service) AssignedMessage(c *models.Complaint, staff string) string {
	return s.Messages.Format(localization.DefaultLang, localization.KeyAssigned, c.TicketID, staff)
}

func (s *Service) CommentMessage(c *models.Complaint, text string) string {
	return s.Messages.Format(localization.DefaultLang, localization.KeyCommentAdded, c.TicketID, Preview(text, config.CommentPreview))
}

// Preview cuts text to max runes and marks the cut with "...".
func Preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// Notify inserts a notification for the complaint's owner using tx.
func (s *Service) Notify(ctx context.Context, tx storage.Storage, c *models.Complaint, message string) (*models.Notification, error) {
	complaintID := c.ID
	n := &models.Notification{
		UserID:      c.StudentID,
		ComplaintID: &complaintID,
		Message:     message,
	}
	if err := tx.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// Publish pushes committed notifications to the live hub.
func (s *Service) Publish(ctx context.Context, notes ...*models.Notification) {
	if s == nil || s.Publisher == nil {
		return
	}
	for _, n := range notes {
		if n == nil {
			continue
		}
		s.Publisher.Publish(ctx, *n)
		slog.Debug("notification published", "user_id", n.UserID, "notification_id", n.ID)
	}
}
