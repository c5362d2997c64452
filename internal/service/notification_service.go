package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"comparte/internal/domain"
	"comparte/internal/models"
	"comparte/internal/repository"
	"comparte/internal/ws"

	"gorm.io/gorm"
)

// NotificationService owns the notification lifecycle: durable append, ordered
// listing and the read flag. Delivery is poll-based; the user hub push is a
// best-effort badge hint on top.
type NotificationService struct {
	repo *repository.NotificationRepository
	hub  *ws.Hub
}

func NewNotificationService(repo *repository.NotificationRepository, hub *ws.Hub) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

// NotificationInput carries the optional fields of a new notification.
type NotificationInput struct {
	Content     string
	Preview     string
	RequesterID *uint
	DonationID  *uint
	Type        string
}

// Create appends a notification for recipientID. The display content is
// always non-empty: content, then preview, then a default string.
func (s *NotificationService) Create(recipientID uint, in NotificationInput) (*models.Notification, error) {
	if recipientID == 0 {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		content = strings.TrimSpace(in.Preview)
	}
	if content == "" {
		content = domain.DefaultNotificationText
	}
	notifType := in.Type
	if notifType == "" {
		notifType = domain.NotificationTypeInfo
	}
	n := &models.Notification{
		RecipientID: recipientID,
		Type:        notifType,
		Content:     content,
		Preview:     in.Preview,
		RequesterID: in.RequesterID,
		DonationID:  in.DonationID,
	}
	if err := s.repo.Create(n); err != nil {
		return nil, fmt.Errorf("%w: create notification: %v", domain.ErrStorage, err)
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(recipientID, map[string]interface{}{
			"type": "notification",
			"id":   n.ID,
		})
	}
	return n, nil
}

// ListForUser returns the recipient's notifications newest-first. Rows whose
// content ended up empty are filtered out; the creation contract makes that
// impossible, the filter guards against hand-edited rows.
func (s *NotificationService) ListForUser(recipientID uint, limit, offset int) ([]models.Notification, error) {
	if recipientID == 0 {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrValidation)
	}
	list, err := s.repo.ListByRecipientID(recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list notifications: %v", domain.ErrStorage, err)
	}
	out := list[:0]
	for _, n := range list {
		if strings.TrimSpace(n.Content) == "" {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flips the read flag. Idempotent: marking an already-read
// notification succeeds without effect.
func (s *NotificationService) MarkRead(id uint) error {
	if _, err := s.repo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: notification %d", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: load notification: %v", domain.ErrStorage, err)
	}
	if err := s.repo.MarkRead(id); err != nil {
		return fmt.Errorf("%w: mark read: %v", domain.ErrStorage, err)
	}
	return nil
}

// ParseUserID turns a path parameter into a user id. The frontend has been
// observed sending the literal strings "undefined" and "null" when its auth
// state is not ready; those must be rejected, never treated as an empty list.
func ParseUserID(raw string) (uint, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "undefined" || v == "null" {
		return 0, fmt.Errorf("%w: invalid user id %q", domain.ErrValidation, raw)
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", domain.ErrValidation, raw)
	}
	return uint(id), nil
}
