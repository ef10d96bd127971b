package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medride/internal/domain"
	"medride/internal/repository"
)

// StatusLogService reads the append-only ride timeline.
// Appends only happen inside lifecycle transactions through appendUpdate.
type StatusLogService struct {
	store repository.Store
}

// NewStatusLogService creates a new StatusLogService.
func NewStatusLogService(store repository.Store) *StatusLogService {
	return &StatusLogService{store: store}
}

// Timeline returns a ride's status updates ordered by creation time, then insertion order.
func (s *StatusLogService) Timeline(ctx context.Context, rideID string, actor Actor) ([]*domain.StatusUpdate, error) {
	if _, err := loadRideForRead(ctx, s.store.Rides(), rideID, actor); err != nil {
		return nil, err
	}
	return s.store.StatusUpdates().ListByRide(ctx, rideID)
}

// CurrentStage returns the latest stage of a ride, or accepted if the timeline is empty.
func (s *StatusLogService) CurrentStage(ctx context.Context, rideID string, actor Actor) (domain.RideStatus, error) {
	if _, err := loadRideForRead(ctx, s.store.Rides(), rideID, actor); err != nil {
		return "", err
	}
	return currentStage(ctx, s.store.StatusUpdates(), rideID)
}

func currentStage(ctx context.Context, updates repository.StatusUpdateRepository, rideID string) (domain.RideStatus, error) {
	latest, err := updates.Latest(ctx, rideID)
	if err != nil {
		return "", fmt.Errorf("load latest status: %w", err)
	}
	if latest == nil {
		return domain.RideStatusAccepted, nil
	}
	return latest.Status, nil
}

// appendUpdate writes a timeline entry. created_at never goes backwards within a ride,
// so a clock step cannot reorder the timeline.
func appendUpdate(ctx context.Context, updates repository.StatusUpdateRepository, rideID string, status domain.RideStatus, notes string, at time.Time) (*domain.StatusUpdate, error) {
	latest, err := updates.Latest(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("load latest status: %w", err)
	}
	if latest != nil && at.Before(latest.CreatedAt) {
		at = latest.CreatedAt
	}

	update := &domain.StatusUpdate{
		ID:        uuid.New().String(),
		RideID:    rideID,
		Status:    status,
		Notes:     notes,
		CreatedAt: at,
	}
	if err := updates.Append(ctx, update); err != nil {
		return nil, fmt.Errorf("append status update: %w", err)
	}
	return update, nil
}
