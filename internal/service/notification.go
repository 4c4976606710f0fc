package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/skillhub/marketplace-api/internal/dto"
	"github.com/skillhub/marketplace-api/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) (*dto.NotificationListResponse, error) {
	notifications, err := s.notificationRepo.ListByRecipient(ctx, recipientID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.notificationRepo.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("unread count: %w", err)
	}

	resp := &dto.NotificationListResponse{Unread: unread}
	for _, n := range notifications {
		resp.Notifications = append(resp.Notifications, dto.NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			OrderID:   n.OrderID,
			ServiceID: n.ServiceID,
			ReviewID:  n.ReviewID,
			IsRead:    n.IsRead,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}
	return resp, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	ok, err := s.notificationRepo.MarkRead(ctx, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
