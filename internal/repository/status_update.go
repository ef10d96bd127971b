package repository

import (
	"context"

	"medride/internal/domain"
)

// StatusUpdateRepository is the append-only ride timeline.
type StatusUpdateRepository interface {
	// Append persists a new status update and assigns its sequence number.
	Append(ctx context.Context, update *domain.StatusUpdate) error

	// ListByRide retrieves a ride's updates ordered by creation time, then insertion order.
	ListByRide(ctx context.Context, rideID string) ([]*domain.StatusUpdate, error)

	// Latest retrieves the most recent update of a ride.
	// Returns nil if the ride has no updates.
	Latest(ctx context.Context, rideID string) (*domain.StatusUpdate, error)
}
