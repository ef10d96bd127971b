package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/repository"
)

// Notification titles.
const (
	TitleRideCompleted = "Ride Completed"
	TitleRideCancelled = "Ride Cancelled"
)

// NotificationService handles notification delivery.
// Rows are the durable record; the event bus carries the realtime push.
type NotificationService struct {
	store  repository.Store
	bus    events.Publisher
	logger *logrus.Logger
	clock  Clock
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store repository.Store, bus events.Publisher, logger *logrus.Logger, clock Clock) *NotificationService {
	return &NotificationService{
		store:  store,
		bus:    bus,
		logger: logger,
		clock:  clock,
	}
}

// NotifyRequest contains the parameters for sending a notification.
type NotifyRequest struct {
	UserID  string
	Title   string
	Message string
	Type    domain.NotificationType
}

// Notify stores a notification for one user and pushes it.
func (s *NotificationService) Notify(ctx context.Context, req NotifyRequest) (*domain.Notification, error) {
	if req.UserID == "" || req.Title == "" || req.Message == "" {
		return nil, ErrInvalidNotification
	}
	if req.Type == "" {
		req.Type = domain.NotificationTypeRide
	}
	if _, err := s.store.Profiles().GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	n, err := s.dispatch(ctx, s.store.Notifications(), req, s.clock.now())
	if err != nil {
		return nil, err
	}
	s.announce(n)
	return n, nil
}

// ListForUser returns the caller's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, actor Actor, limit int) ([]*domain.Notification, error) {
	return s.store.Notifications().ListByUser(ctx, actor.UserID, limit)
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, actor Actor) error {
	return s.store.Notifications().MarkRead(ctx, id, actor.UserID)
}

// UnreadCount returns the number of unread notifications of the caller.
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	return s.store.Notifications().CountUnread(ctx, actor.UserID)
}

// dispatch writes a notification through repo, which may be bound to an open transaction.
func (s *NotificationService) dispatch(ctx context.Context, repo repository.NotificationRepository, req NotifyRequest, at time.Time) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		CreatedAt: at,
	}
	if err := repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// announce publishes committed notifications to their recipients.
func (s *NotificationService) announce(notifications ...*domain.Notification) {
	for _, n := range notifications {
		s.logger.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"user_id":         n.UserID,
			"type":            n.Type,
			"title":           n.Title,
		}).Info("notification created")

		if s.bus == nil {
			continue
		}
		s.bus.Publish(events.Event{
			Type:     events.NotificationCreated,
			Audience: []string{n.UserID},
			Notification: &events.Notification{
				ID:      n.ID,
				Title:   n.Title,
				Message: n.Message,
				Type:    string(n.Type),
			},
			OccurredAt: n.CreatedAt,
		})
	}
}
