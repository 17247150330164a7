package service

import (
	"context"
	"time"

	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/notifications"
	"bookswap/internal/observability"
	"bookswap/internal/repository"

	"github.com/google/uuid"
)

const notifyTimeout = 5 * time.Second

// Notifier records a user-visible event. Implementations never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string, relatedBookID *uint, actionLink string)
}

// EventPublisher pushes a live event to a user's sockets.
type EventPublisher interface {
	PublishEvent(ctx context.Context, userID uuid.UUID, eventType string, payload any) error
}

// NotificationDispatcher stores notifications and pushes them to connected clients.
type NotificationDispatcher struct {
	repo      repository.NotificationRepository
	publisher EventPublisher
}

// NewNotificationDispatcher returns a dispatcher. publisher may be nil.
func NewNotificationDispatcher(repo repository.NotificationRepository, publisher EventPublisher) *NotificationDispatcher {
	return &NotificationDispatcher{repo: repo, publisher: publisher}
}

// Notify is best-effort: failures are logged and counted, never returned.
// It runs on a context detached from the caller's cancellation.
func (d *NotificationDispatcher) Notify(ctx context.Context, userID uuid.UUID, message string, relatedBookID *uint, actionLink string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	n := &models.Notification{
		UserID:        userID,
		Message:       message,
		RelatedBookID: relatedBookID,
		ActionLink:    actionLink,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		observability.NotificationFailures.WithLabelValues("store").Inc()
		middleware.Logger.ErrorContext(ctx, "failed to store notification", "recipient_id", userID, "error", err)
		return
	}

	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishEvent(ctx, userID, notifications.EventNotification, n); err != nil {
		observability.NotificationFailures.WithLabelValues("publish").Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish notification", "recipient_id", userID, "error", err)
	}
}

// NotificationService lists and acknowledges a user's notifications.
type NotificationService struct {
	repo repository.NotificationRepository
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkAsRead flags one notification. Only the recipient may do so.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllAsRead flags every unread notification and reports how many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
