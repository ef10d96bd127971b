package repository

import (
	"context"

	"medride/internal/domain"
)

// EarningRepository defines the persistence operations for rider earnings.
type EarningRepository interface {
	// Create persists a new earning. Returns ErrConflict if the ride already has one.
	Create(ctx context.Context, earning *domain.Earning) error

	// ListByRider retrieves a rider's earnings, newest first.
	ListByRider(ctx context.Context, riderID string) ([]*domain.Earning, error)
}
